/*

Package xswap defines the interfaces shared by all cross-ledger atomic transfer
components: storage, context values (block time, logger), addresses and time.
Look into this package to get a brief overview of the building blocks the
extensions under x/ are wired together with.

*/

package xswap
