// Package diagparse turns raw toolchain output into diag.Diagnostic records.
//
// Two dialects are provided:
//
//   - generic: "file:line[:col]: message" and "file(line[,col]) message",
//     covering gcc/clang style tools, fpc, MSVC-like and most others;
//   - arrow: a message line followed by a "--> file:line[:col]" locator, as
//     printed by rustc and friends.
//
// Every reference to the submitted source file (relative, absolute, jailed or
// "<stdin>") is replaced by the "<source>" placeholder. Parsing never fails:
// lines that match no pattern are returned verbatim without a tag.
package diagparse
