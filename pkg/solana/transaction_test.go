package solana

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testKeys struct {
	payer   ed25519.PrivateKey
	signer  ed25519.PrivateKey
	program ed25519.PublicKey
}

func generateTestKeys(t *testing.T) testKeys {
	_, payer, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, signer, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	program, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	return testKeys{
		payer:   payer,
		signer:  signer,
		program: program,
	}
}

func TestTransaction_AccountOrdering(t *testing.T) {
	keys := generateTestKeys(t)

	writable, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	readonly, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	txn := NewTransaction(
		keys.payer.Public().(ed25519.PublicKey),
		NewInstruction(
			keys.program,
			[]byte{1, 2, 3},
			NewReadonlyAccountMeta(readonly, false),
			NewAccountMeta(writable, false),
			NewAccountMeta(keys.signer.Public().(ed25519.PublicKey), true),
		),
	)

	accounts := txn.Message.Accounts
	require.Len(t, accounts, 5)

	// Payer first, then signers, then writable non-signers, then readonly,
	// and the program last.
	assert.EqualValues(t, keys.payer.Public().(ed25519.PublicKey), accounts[0])
	assert.EqualValues(t, keys.signer.Public().(ed25519.PublicKey), accounts[1])
	assert.EqualValues(t, ed25519.PublicKey(writable), accounts[2])
	assert.EqualValues(t, ed25519.PublicKey(readonly), accounts[3])
	assert.EqualValues(t, keys.program, accounts[4])

	assert.EqualValues(t, 2, txn.Message.Header.NumSignatures)
	assert.EqualValues(t, 0, txn.Message.Header.NumReadonlySigned)
	assert.EqualValues(t, 2, txn.Message.Header.NumReadOnly)
}

func TestTransaction_DuplicateAccountsPromoted(t *testing.T) {
	keys := generateTestKeys(t)

	account, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	// The same account appears once readonly and once writable. The
	// compiled account list must contain it once, with the writable
	// permission promoted.
	txn := NewTransaction(
		keys.payer.Public().(ed25519.PublicKey),
		NewInstruction(keys.program, nil, NewReadonlyAccountMeta(account, false)),
		NewInstruction(keys.program, nil, NewAccountMeta(account, false)),
	)

	var count int
	for _, a := range txn.Message.Accounts {
		if bytes.Equal(a, account) {
			count++
		}
	}
	assert.Equal(t, 1, count)

	index := indexOf(txn.Message.Accounts, account)
	require.True(t, index >= 0)

	// Writable non-signers sort before readonly accounts.
	assert.Less(t, index, indexOf(txn.Message.Accounts, keys.program))
	assert.EqualValues(t, 1, txn.Message.Header.NumReadOnly)
}

func TestTransaction_SignAndMarshalRoundTrip(t *testing.T) {
	keys := generateTestKeys(t)

	txn := NewTransaction(
		keys.payer.Public().(ed25519.PublicKey),
		NewInstruction(
			keys.program,
			[]byte{0x01, 0xff},
			NewAccountMeta(keys.signer.Public().(ed25519.PublicKey), true),
		),
	)

	var bh Blockhash
	for i := range bh {
		bh[i] = byte(i)
	}
	txn.SetBlockhash(bh)

	require.NoError(t, txn.Sign(keys.payer, keys.signer))

	messageBytes := txn.Message.Marshal()
	for i, sig := range txn.Signatures {
		assert.True(t, ed25519.Verify(txn.Message.Accounts[i], messageBytes, sig[:]), "signature %d", i)
	}

	marshalled := txn.Marshal()
	require.LessOrEqual(t, len(marshalled), MaxTransactionSize)

	var decoded Transaction
	require.NoError(t, decoded.Unmarshal(marshalled))

	assert.Equal(t, txn.Signatures, decoded.Signatures)
	assert.Equal(t, txn.Message.Header, decoded.Message.Header)
	assert.Equal(t, txn.Message.RecentBlockhash, decoded.Message.RecentBlockhash)
	require.Len(t, decoded.Message.Instructions, 1)
	assert.Equal(t, txn.Message.Instructions[0].Data, decoded.Message.Instructions[0].Data)
}

func TestTransaction_SignUnknownAccount(t *testing.T) {
	keys := generateTestKeys(t)

	txn := NewTransaction(
		keys.payer.Public().(ed25519.PublicKey),
		NewInstruction(keys.program, nil),
	)

	_, stranger, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	assert.Error(t, txn.Sign(stranger))
}

func TestMessage_UnmarshalRejectsVersioned(t *testing.T) {
	var m Message
	assert.Error(t, m.Unmarshal([]byte{0x80}))
	assert.Error(t, m.Unmarshal(nil))
}
