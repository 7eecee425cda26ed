package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/internquest/sessionguard/storage"
)

var (
	// ErrAccountExists indicates a registration conflict.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials covers both unknown accounts and wrong
	// passphrases, deliberately indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPassphraseTooShort indicates the passphrase fails the minimum
	// length policy.
	ErrPassphraseTooShort = errors.New("passphrase too short")
)

// minPassphraseLen enforces a baseline of entropy from the human-chosen
// input; the passphrase is the sole unlock factor.
const minPassphraseLen = 10

// Account is a stored identity that sessions authenticate against.
type Account struct {
	ID         string    `json:"id"`
	Passphrase Hash      `json:"passphrase"`
	CreatedAt  time.Time `json:"created_at"`
}

// Accounts persists Account records in a storage.Repository.
type Accounts struct {
	repo storage.Repository
}

// NewAccounts returns an account store backed by the given repository.
func NewAccounts(repo storage.Repository) *Accounts {
	return &Accounts{repo: repo}
}

// Create registers a new account. The passphrase must meet the minimum
// length policy; the ID must be unused.
func (a *Accounts) Create(id, passphrase string) (Account, error) {
	if id == "" {
		return Account{}, fmt.Errorf("account ID is required")
	}
	if len(passphrase) < minPassphraseLen {
		return Account{}, fmt.Errorf("%w: need at least %d characters", ErrPassphraseTooShort, minPassphraseLen)
	}
	if _, err := a.repo.Get(storage.RecordTypeAccount, id); err == nil {
		return Account{}, fmt.Errorf("%q: %w", id, ErrAccountExists)
	}

	hash, err := HashPassphrase(passphrase)
	if err != nil {
		return Account{}, err
	}
	acct := Account{
		ID:         id,
		Passphrase: hash,
		CreatedAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(acct)
	if err != nil {
		return Account{}, err
	}
	if err := a.repo.Put(storage.RecordTypeAccount, id, data); err != nil {
		return Account{}, fmt.Errorf("persisting account: %w", err)
	}
	return acct, nil
}

// Verify checks an account's passphrase. Unknown account and wrong
// passphrase return the same error.
func (a *Accounts) Verify(id, passphrase string) error {
	acct, err := a.Get(id)
	if err != nil {
		return ErrInvalidCredentials
	}
	if !acct.Passphrase.Verify(passphrase) {
		return ErrInvalidCredentials
	}
	return nil
}

// Get loads an account record by ID.
func (a *Accounts) Get(id string) (Account, error) {
	data, err := a.repo.Get(storage.RecordTypeAccount, id)
	if err != nil {
		return Account{}, err
	}
	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return Account{}, fmt.Errorf("decoding account %q: %w", id, err)
	}
	return acct, nil
}
