// Package batch submits donation intents to a wallet.
//
// A Submitter sends each intent of a batch to the connected Wallet as an
// independent transfer, strictly one after another: the wallet models a
// single signer and concurrent signing requests against it are not safe.
// A failing transfer is recorded and the batch moves on to the next intent.
// Nothing is retried and nothing that succeeded is rolled back, so partial
// success is the normal shape of a BatchResult.
package batch
