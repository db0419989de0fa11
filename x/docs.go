/*
Package x contains the building blocks shared by the xswap extensions.

An extension never decides by itself who signed a call. Instead it receives
an Authenticator and asks it which conditions are fulfilled in the current
context. This allows to plug a different authentication system (the CLI
signer or a test mock) without changing the extension.
*/
package x
