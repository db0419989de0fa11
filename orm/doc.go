/*
Package orm provides an easy to use db wrapper.

Break state space into prefixed sections called Buckets. Each bucket
contains only one type of model, addressed by a primary key. Models are
serialized with go-amino and validated before every write.

There is no delete operation. Once written, an entity can only be replaced
by a newer, valid version of itself.
*/
package orm
