package seedvaultv1

// Field numbers in the fields methods are the wire contract. Never renumber
// or reuse a field.

// Empty is the request or response of calls that carry no data.
type Empty struct{}

func (*Empty) fields() []field { return nil }

type AuthorizeSeedRequest struct {
	SeedID  *int64 `json:"seed_id,omitempty"`
	Purpose int    `json:"purpose"`
	PIN     string `json:"pin"`
}

func (m *AuthorizeSeedRequest) fields() []field {
	return []field{
		optInt64Field(1, "seed_id", &m.SeedID),
		intField(2, "purpose", &m.Purpose),
		stringField(3, "pin", &m.PIN),
	}
}

type AuthorizeSeedResponse struct {
	AuthToken int64 `json:"auth_token"`
	SeedID    int64 `json:"seed_id"`
}

func (m *AuthorizeSeedResponse) fields() []field {
	return []field{
		int64Field(1, "auth_token", &m.AuthToken),
		int64Field(2, "seed_id", &m.SeedID),
	}
}

type DeauthorizeRequest struct {
	AuthToken int64 `json:"auth_token"`
}

func (m *DeauthorizeRequest) fields() []field {
	return []field{int64Field(1, "auth_token", &m.AuthToken)}
}

type SigningRequest struct {
	Payload         []byte   `json:"payload"`
	DerivationPaths []string `json:"derivation_paths"`
}

func (m *SigningRequest) fields() []field {
	return []field{
		bytesField(1, "payload", &m.Payload),
		stringsField(2, "derivation_paths", &m.DerivationPaths),
	}
}

type SignRequest struct {
	AuthToken int64            `json:"auth_token"`
	PIN       string           `json:"pin"`
	Requests  []SigningRequest `json:"requests"`
}

func (m *SignRequest) fields() []field {
	return []field{
		int64Field(1, "auth_token", &m.AuthToken),
		stringField(2, "pin", &m.PIN),
		messagesField(3, "requests", "SigningRequest", &m.Requests),
	}
}

type SigningResponse struct {
	Signatures              [][]byte `json:"signatures"`
	ResolvedDerivationPaths []string `json:"resolved_derivation_paths"`
}

func (m *SigningResponse) fields() []field {
	return []field{
		bytesListField(1, "signatures", &m.Signatures),
		stringsField(2, "resolved_derivation_paths", &m.ResolvedDerivationPaths),
	}
}

type SignResponse struct {
	Responses []SigningResponse `json:"responses"`
}

func (m *SignResponse) fields() []field {
	return []field{messagesField(1, "responses", "SigningResponse", &m.Responses)}
}

type PublicKeysRequest struct {
	AuthToken       int64    `json:"auth_token"`
	PIN             string   `json:"pin,omitempty"`
	DerivationPaths []string `json:"derivation_paths"`
}

func (m *PublicKeysRequest) fields() []field {
	return []field{
		int64Field(1, "auth_token", &m.AuthToken),
		stringField(2, "pin", &m.PIN),
		stringsField(3, "derivation_paths", &m.DerivationPaths),
	}
}

// PublicKey is empty when no key exists at the resolved path.
type PublicKey struct {
	PublicKey              []byte `json:"public_key,omitempty"`
	PublicKeyBase58        string `json:"public_key_base58,omitempty"`
	ResolvedDerivationPath string `json:"resolved_derivation_path"`
}

func (m *PublicKey) fields() []field {
	return []field{
		bytesField(1, "public_key", &m.PublicKey),
		stringField(2, "public_key_base58", &m.PublicKeyBase58),
		stringField(3, "resolved_derivation_path", &m.ResolvedDerivationPath),
	}
}

type PublicKeysResponse struct {
	PublicKeys []PublicKey `json:"public_keys"`
}

func (m *PublicKeysResponse) fields() []field {
	return []field{messagesField(1, "public_keys", "PublicKey", &m.PublicKeys)}
}

type AuthorizedSeedsRequest struct {
	AuthToken *int64 `json:"auth_token,omitempty"`
}

func (m *AuthorizedSeedsRequest) fields() []field {
	return []field{optInt64Field(1, "auth_token", &m.AuthToken)}
}

type AuthorizedSeed struct {
	AuthToken int64  `json:"auth_token"`
	Purpose   int    `json:"purpose"`
	SeedName  string `json:"seed_name"`
}

func (m *AuthorizedSeed) fields() []field {
	return []field{
		int64Field(1, "auth_token", &m.AuthToken),
		intField(2, "purpose", &m.Purpose),
		stringField(3, "seed_name", &m.SeedName),
	}
}

type AuthorizedSeedsResponse struct {
	Seeds []AuthorizedSeed `json:"seeds"`
}

func (m *AuthorizedSeedsResponse) fields() []field {
	return []field{messagesField(1, "seeds", "AuthorizedSeed", &m.Seeds)}
}

type UnauthorizedSeedsRequest struct {
	Purpose *int `json:"purpose,omitempty"`
}

func (m *UnauthorizedSeedsRequest) fields() []field {
	return []field{optIntField(1, "purpose", &m.Purpose)}
}

type UnauthorizedSeeds struct {
	Purpose              int  `json:"purpose"`
	HasUnauthorizedSeeds bool `json:"has_unauthorized_seeds"`
}

func (m *UnauthorizedSeeds) fields() []field {
	return []field{
		intField(1, "purpose", &m.Purpose),
		boolField(2, "has_unauthorized_seeds", &m.HasUnauthorizedSeeds),
	}
}

type UnauthorizedSeedsResponse struct {
	Purposes []UnauthorizedSeeds `json:"purposes"`
}

func (m *UnauthorizedSeedsResponse) fields() []field {
	return []field{messagesField(1, "purposes", "UnauthorizedSeeds", &m.Purposes)}
}

type AccountsRequest struct {
	AuthToken int64  `json:"auth_token"`
	AccountID *int64 `json:"account_id,omitempty"`
}

func (m *AccountsRequest) fields() []field {
	return []field{
		int64Field(1, "auth_token", &m.AuthToken),
		optInt64Field(2, "account_id", &m.AccountID),
	}
}

type Account struct {
	ID              int64  `json:"id"`
	DerivationPath  string `json:"derivation_path"`
	PublicKey       []byte `json:"public_key"`
	PublicKeyBase58 string `json:"public_key_base58"`
	Name            string `json:"name"`
	IsUserWallet    bool   `json:"is_user_wallet"`
	IsValid         bool   `json:"is_valid"`
}

func (m *Account) fields() []field {
	return []field{
		int64Field(1, "id", &m.ID),
		stringField(2, "derivation_path", &m.DerivationPath),
		bytesField(3, "public_key", &m.PublicKey),
		stringField(4, "public_key_base58", &m.PublicKeyBase58),
		stringField(5, "name", &m.Name),
		boolField(6, "is_user_wallet", &m.IsUserWallet),
		boolField(7, "is_valid", &m.IsValid),
	}
}

type AccountsResponse struct {
	Accounts []Account `json:"accounts"`
}

func (m *AccountsResponse) fields() []field {
	return []field{messagesField(1, "accounts", "Account", &m.Accounts)}
}

type UpdateAccountRequest struct {
	AuthToken    int64   `json:"auth_token"`
	AccountID    int64   `json:"account_id"`
	Name         *string `json:"name,omitempty"`
	IsUserWallet *bool   `json:"is_user_wallet,omitempty"`
	IsValid      *bool   `json:"is_valid,omitempty"`
}

func (m *UpdateAccountRequest) fields() []field {
	return []field{
		int64Field(1, "auth_token", &m.AuthToken),
		int64Field(2, "account_id", &m.AccountID),
		optStringField(3, "name", &m.Name),
		optBoolField(4, "is_user_wallet", &m.IsUserWallet),
		optBoolField(5, "is_valid", &m.IsValid),
	}
}

type ImplementationLimitsRequest struct {
	Purpose int `json:"purpose"`
}

func (m *ImplementationLimitsRequest) fields() []field {
	return []field{intField(1, "purpose", &m.Purpose)}
}

type ImplementationLimitsResponse struct {
	Purpose                int `json:"purpose"`
	MaxSigningRequests     int `json:"max_signing_requests"`
	MaxRequestedSignatures int `json:"max_requested_signatures"`
	MaxRequestedPublicKeys int `json:"max_requested_public_keys"`
}

func (m *ImplementationLimitsResponse) fields() []field {
	return []field{
		intField(1, "purpose", &m.Purpose),
		intField(2, "max_signing_requests", &m.MaxSigningRequests),
		intField(3, "max_requested_signatures", &m.MaxRequestedSignatures),
		intField(4, "max_requested_public_keys", &m.MaxRequestedPublicKeys),
	}
}

type ResolveDerivationPathRequest struct {
	Purpose        int    `json:"purpose"`
	DerivationPath string `json:"derivation_path"`
}

func (m *ResolveDerivationPathRequest) fields() []field {
	return []field{
		intField(1, "purpose", &m.Purpose),
		stringField(2, "derivation_path", &m.DerivationPath),
	}
}

type ResolveDerivationPathResponse struct {
	ResolvedDerivationPath string `json:"resolved_derivation_path"`
}

func (m *ResolveDerivationPathResponse) fields() []field {
	return []field{stringField(1, "resolved_derivation_path", &m.ResolvedDerivationPath)}
}

type CreateSeedRequest struct {
	Words                int    `json:"words"`
	Name                 string `json:"name,omitempty"`
	PIN                  string `json:"pin"`
	UnlockWithBiometrics bool   `json:"unlock_with_biometrics"`
}

func (m *CreateSeedRequest) fields() []field {
	return []field{
		intField(1, "words", &m.Words),
		stringField(2, "name", &m.Name),
		stringField(3, "pin", &m.PIN),
		boolField(4, "unlock_with_biometrics", &m.UnlockWithBiometrics),
	}
}

// CreateSeedResponse returns the new phrase once; the vault never reveals it again.
type CreateSeedResponse struct {
	SeedID   int64  `json:"seed_id"`
	Mnemonic string `json:"mnemonic"`
}

func (m *CreateSeedResponse) fields() []field {
	return []field{
		int64Field(1, "seed_id", &m.SeedID),
		stringField(2, "mnemonic", &m.Mnemonic),
	}
}

type ImportSeedRequest struct {
	Mnemonic             string `json:"mnemonic"`
	Passphrase           string `json:"passphrase,omitempty"`
	Name                 string `json:"name,omitempty"`
	PIN                  string `json:"pin"`
	UnlockWithBiometrics bool   `json:"unlock_with_biometrics"`
}

func (m *ImportSeedRequest) fields() []field {
	return []field{
		stringField(1, "mnemonic", &m.Mnemonic),
		stringField(2, "passphrase", &m.Passphrase),
		stringField(3, "name", &m.Name),
		stringField(4, "pin", &m.PIN),
		boolField(5, "unlock_with_biometrics", &m.UnlockWithBiometrics),
	}
}

type ImportSeedResponse struct {
	SeedID int64 `json:"seed_id"`
}

func (m *ImportSeedResponse) fields() []field {
	return []field{int64Field(1, "seed_id", &m.SeedID)}
}

type UpdateSeedRequest struct {
	SeedID               int64   `json:"seed_id"`
	Name                 *string `json:"name,omitempty"`
	PIN                  *string `json:"pin,omitempty"`
	UnlockWithBiometrics *bool   `json:"unlock_with_biometrics,omitempty"`
	IsBackedUp           *bool   `json:"is_backed_up,omitempty"`
}

func (m *UpdateSeedRequest) fields() []field {
	return []field{
		int64Field(1, "seed_id", &m.SeedID),
		optStringField(2, "name", &m.Name),
		optStringField(3, "pin", &m.PIN),
		optBoolField(4, "unlock_with_biometrics", &m.UnlockWithBiometrics),
		optBoolField(5, "is_backed_up", &m.IsBackedUp),
	}
}

type DeleteSeedRequest struct {
	SeedID int64 `json:"seed_id"`
}

func (m *DeleteSeedRequest) fields() []field {
	return []field{int64Field(1, "seed_id", &m.SeedID)}
}

type Authorization struct {
	UID       int   `json:"uid"`
	AuthToken int64 `json:"auth_token"`
	Purpose   int   `json:"purpose"`
}

func (m *Authorization) fields() []field {
	return []field{
		intField(1, "uid", &m.UID),
		int64Field(2, "auth_token", &m.AuthToken),
		intField(3, "purpose", &m.Purpose),
	}
}

type SeedInfo struct {
	ID                   int64           `json:"id"`
	Name                 string          `json:"name"`
	PhraseWords          int             `json:"phrase_words"`
	UnlockWithBiometrics bool            `json:"unlock_with_biometrics"`
	IsBackedUp           bool            `json:"is_backed_up"`
	Authorizations       []Authorization `json:"authorizations"`
	Accounts             int             `json:"accounts"`
}

func (m *SeedInfo) fields() []field {
	return []field{
		int64Field(1, "id", &m.ID),
		stringField(2, "name", &m.Name),
		intField(3, "phrase_words", &m.PhraseWords),
		boolField(4, "unlock_with_biometrics", &m.UnlockWithBiometrics),
		boolField(5, "is_backed_up", &m.IsBackedUp),
		messagesField(6, "authorizations", "Authorization", &m.Authorizations),
		intField(7, "accounts", &m.Accounts),
	}
}

type ListSeedsResponse struct {
	Seeds []SeedInfo `json:"seeds"`
}

func (m *ListSeedsResponse) fields() []field {
	return []field{messagesField(1, "seeds", "SeedInfo", &m.Seeds)}
}

// ChangeNotification mirrors a vault change. ID is absent for bulk changes.
type ChangeNotification struct {
	Category string `json:"category"`
	Type     string `json:"type"`
	ID       *int64 `json:"id,omitempty"`
}

func (m *ChangeNotification) fields() []field {
	return []field{
		stringField(1, "category", &m.Category),
		stringField(2, "type", &m.Type),
		optInt64Field(3, "id", &m.ID),
	}
}

type IssueTokenRequest struct {
	UID   int  `json:"uid"`
	Admin bool `json:"admin"`
}

func (m *IssueTokenRequest) fields() []field {
	return []field{
		intField(1, "uid", &m.UID),
		boolField(2, "admin", &m.Admin),
	}
}

type IssueTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

func (m *IssueTokenResponse) fields() []field {
	return []field{
		stringField(1, "token", &m.Token),
		int64Field(2, "expires_at", &m.ExpiresAt),
	}
}
