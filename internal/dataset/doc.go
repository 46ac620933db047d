// Package dataset loads the messages and categories files into one merged table.
//
// Loading happens in four steps:
//
//  1. Both files are decoded with csvutil. The configured id column (and, for
//     the categories file, the packed categories column) are decoded into key
//     structs; all other columns are carried as text fields.
//  2. The category schema is parsed once from the first categories row.
//     Tokens look like "related-1"; the name is the token minus its
//     two-character "-<digit>" suffix.
//  3. Every categories row is validated against the schema and expanded into
//     one integer per category. Divergent rows either abort the load or are
//     skipped, depending on msgload.SchemaPolicy.
//  4. Messages and categories are inner-joined on the identifier, in
//     messages order. Rows without a partner on the other side are dropped.
package dataset
