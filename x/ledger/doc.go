/*
Package ledger implements a minimal fungible value ledger kept in the same
store as the transfers that move its value.

Every account holds a balance and an allowance. An owner approves an
allowance before a hold can take value into the custody account. Value
leaves custody either by being burned or by being transferred back to an
account. Minting credits an account with new value.

Because all movements are written through the store given to each call,
they are committed or discarded together with any other write made in the
same cache wrap.
*/
package ledger
