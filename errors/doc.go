/*
Package errors provides the registered errors returned by xswap.

Every failure wraps a root error declared with Register. Callers test for
the kind of failure with the Is method of the root error, and the command
line client reports its Code. Wrap and Wrapf add context and attach a stack
trace once, at the innermost wrap.

Formatting a wrapped error with %+v prints the whole stack, while %v adds
only the file and line where it was created.
*/
package errors
