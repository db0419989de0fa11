/*
Package gconf keeps the configuration of an extension in the database.

A configuration is a single model stored in the "config" bucket under the
extension name. It is loaded from the genesis file with InitConfig and can
later be changed only by its owner, using Update.
*/
package gconf
