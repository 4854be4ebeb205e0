// Package fuzztests houses Go fuzz harnesses for the module snapshot decoder
// and the regularizer. Arbitrary bytes must never panic the decoder, and a
// decoded module that passes the structural verifier must never panic the pass.
package fuzztests
