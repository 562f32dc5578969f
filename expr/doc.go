/*
Package expr implements the scalar value model and the filter micro-language
used to query projected rows.

An expression is parsed into an AST with unbound field references, then bound
against a schema (which resolves names to column positions and checks type
families), then evaluated against rows. Both storage engines evaluate the same
bound AST, so a query means the same thing regardless of the access path.
*/
package expr
