/*
Package transfer implements cross ledger atomic transfers secured by a hash
time lock.

A transfer is created by its initiator together with a commitment, the hash
of a secret. The source leg of a swap holds the initiator's value until the
secret is disclosed (the value is burned) or until the holding timeout
passes (the value can be refunded). The destination leg must be accepted by
the authority and mints new value once the secret is disclosed within the
redemption window. Between acceptance and the earliest redemption the
authority may ban the transfer.

Timeouts are never enforced by a background process. Each operation checks
the timeouts relevant to the record it touches and may downgrade the record
to Ignored or Expired instead of performing its nominal effect. Callers must
inspect the returned record after any timing sensitive call.
*/
package transfer
