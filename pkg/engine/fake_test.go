package engine

import (
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58/base58"

	"github.com/multihubswap/engine/pkg/solana"
)

// fakeClient is an in-memory solana.Client with programmable ledger
// state.
type fakeClient struct {
	mu sync.Mutex

	blockhash     solana.Blockhash
	accounts      map[string]solana.AccountInfo
	lamports      map[string]uint64
	tokenBalances map[string]uint64

	simulation    *solana.SimulationResult
	simulationErr error

	// transportErr makes every call fail, standing in for an
	// unreachable endpoint.
	transportErr error

	submitted []solana.Transaction
	statuses  map[solana.Signature]*solana.SignatureStatus

	// confirmFrom is the submission index from which transactions
	// report a confirmed status. Earlier submissions stay unknown.
	confirmFrom int

	onSubmit func(index int, txn solana.Transaction)

	calls map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		blockhash:     solana.Blockhash{1, 2, 3},
		accounts:      make(map[string]solana.AccountInfo),
		lamports:      make(map[string]uint64),
		tokenBalances: make(map[string]uint64),
		statuses:      make(map[solana.Signature]*solana.SignatureStatus),
		calls:         make(map[string]int),
	}
}

func accountKey(account ed25519.PublicKey) string {
	return base58.Encode(account)
}

func (f *fakeClient) called(method string) error {
	f.calls[method]++
	return f.transportErr
}

func (f *fakeClient) setAccount(account ed25519.PublicKey, info solana.AccountInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[accountKey(account)] = info
}

func (f *fakeClient) setLamports(account ed25519.PublicKey, balance uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lamports[accountKey(account)] = balance
}

func (f *fakeClient) setTokenBalance(account ed25519.PublicKey, balance uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenBalances[accountKey(account)] = balance
}

func (f *fakeClient) GetAccountInfo(account ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.called("GetAccountInfo"); err != nil {
		return solana.AccountInfo{}, err
	}

	info, ok := f.accounts[accountKey(account)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return info, nil
}

func (f *fakeClient) GetBalance(account ed25519.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.called("GetBalance"); err != nil {
		return 0, err
	}
	return f.lamports[accountKey(account)], nil
}

func (f *fakeClient) GetLatestBlockhash() (solana.Blockhash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.called("GetLatestBlockhash"); err != nil {
		return solana.Blockhash{}, err
	}
	return f.blockhash, nil
}

func (f *fakeClient) GetMinimumBalanceForRentExemption(size uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.called("GetMinimumBalanceForRentExemption"); err != nil {
		return 0, err
	}
	return size * 10, nil
}

func (f *fakeClient) GetSignatureStatus(sig solana.Signature, _ solana.Commitment) (*solana.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.called("GetSignatureStatus"); err != nil {
		return nil, err
	}

	status, ok := f.statuses[sig]
	if !ok {
		return nil, solana.ErrSignatureNotFound
	}
	return status, nil
}

func (f *fakeClient) GetSignatureStatuses(sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.called("GetSignatureStatuses"); err != nil {
		return nil, err
	}

	statuses := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		statuses[i] = f.statuses[sig]
	}
	return statuses, nil
}

func (f *fakeClient) GetTokenAccountBalance(account ed25519.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.called("GetTokenAccountBalance"); err != nil {
		return 0, err
	}
	return f.tokenBalances[accountKey(account)], nil
}

func (f *fakeClient) SimulateTransaction(_ solana.Transaction) (*solana.SimulationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.called("SimulateTransaction"); err != nil {
		return nil, err
	}

	if f.simulationErr != nil {
		return nil, f.simulationErr
	}
	if f.simulation != nil {
		return f.simulation, nil
	}
	return &solana.SimulationResult{}, nil
}

func (f *fakeClient) SubmitTransaction(txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	f.mu.Lock()

	if err := f.called("SubmitTransaction"); err != nil {
		f.mu.Unlock()
		return solana.Signature{}, err
	}

	index := len(f.submitted)
	f.submitted = append(f.submitted, txn)

	var sig solana.Signature
	copy(sig[:], txn.Signature())

	if index >= f.confirmFrom {
		confirmations := 1
		f.statuses[sig] = &solana.SignatureStatus{
			Slot:               42,
			Confirmations:      &confirmations,
			ConfirmationStatus: "confirmed",
		}
	}

	onSubmit := f.onSubmit
	f.mu.Unlock()

	if onSubmit != nil {
		onSubmit(index, txn)
	}
	return sig, nil
}
