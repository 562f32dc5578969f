/*
Package objidx indexes a collection of live, caller-owned records so that it
can be queried by field predicates faster than a linear scan.

The records stay the source of truth. The index projects selected fields of
each record into a backing store and maps matches back to the original
records by reference.

We implement:

1. A field schema: fields with one of four types (Int64, Float64, Bool,
String) and an extractor (struct attribute, map key, or function).

2. An object registry assigning each record identity a surrogate key.

3. Two backing stores: EngineBolt keeps rows and composite indices in a
private bbolt file; EngineColumnar keeps typed columns in memory and scans.

4. An adaptive executor that tries an indexed query limited to a cutoff and
falls back to a full scan when the limit is reached.

5. A validator for structured conditions and a raw filter language (see the
expr package).

# Technical Details

**Buckets.**
Each index instance gets a root bucket named ri_<namespace>. Inside it, the
data bucket maps 8-byte big-endian surrogate keys to rows, and each index has
a bucket named i_<columns> whose keys are encoded tuples followed by the
surrogate key, with empty values.

**Row encoding.**
A msgpack array with one element per schema field; null is nil.

**Index key encoding.**
Every tuple element starts with a tag byte: 0x01 null, 0x02 bool (followed
by 0 or 1), 0x03 number (followed by an order-preserving 8-byte float64),
0x04 string (followed by the bytes with 0x00 escaped as 0x00 0xFF, terminated
by 0x00 0x01). Int64 values are encoded as float64, so index scans recheck
the full predicate against each candidate row.

**Nulls.**
Any comparison involving null is false, except != which is the negation of
==. A NaN extracted from a record is stored as null.
*/
package objidx
