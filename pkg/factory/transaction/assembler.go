package transaction

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/solana-token-factory/factory/pkg/factory/common"
	"github.com/solana-token-factory/factory/pkg/factory/creation"
	"github.com/solana-token-factory/factory/pkg/factory/fee"
	"github.com/solana-token-factory/factory/pkg/solana"
	compute_budget "github.com/solana-token-factory/factory/pkg/solana/computebudget"
	"github.com/solana-token-factory/factory/pkg/solana/metadata"
	"github.com/solana-token-factory/factory/pkg/solana/system"
	"github.com/solana-token-factory/factory/pkg/solana/token"
)

const (
	DefaultComputeUnitLimit uint32 = 120_000
	DefaultComputeUnitPrice uint64 = 1_670_000

	// RetryComputeUnitLimit is the compute unit limit used when resubmitting
	RetryComputeUnitLimit uint32 = 200_000

	// MaxComputeUnitLimit is the most compute units a transaction may request
	MaxComputeUnitLimit uint32 = 1_400_000
)

var (
	ErrInvalidKey     = errors.New("invalid key")
	ErrMissingMintKey = errors.New("mint private key is required")
)

// Checkpoint is the network state a transaction is assembled against
type Checkpoint struct {
	Blockhash            solana.Blockhash
	LastValidBlockHeight uint64
	RentExemptLamports   uint64
}

// Assembled is a token creation transaction partially signed by the mint. The
// fee payer signature slot is left for the user's wallet.
type Assembled struct {
	Transaction solana.Transaction
	Checkpoint  Checkpoint
	Quote       fee.Quote

	Mint     *common.Account
	Owner    *common.Account
	Treasury *common.Account

	AssociatedTokenAccount *common.Account
	MetadataAccount        *common.Account
}

type assembleOptions struct {
	computeUnitLimit uint32
	computeUnitPrice *uint64
}

type AssembleOption func(*assembleOptions)

func WithComputeUnitLimit(limit uint32) AssembleOption {
	return func(o *assembleOptions) {
		o.computeUnitLimit = limit
	}
}

func WithComputeUnitPrice(microLamports uint64) AssembleOption {
	return func(o *assembleOptions) {
		o.computeUnitPrice = &microLamports
	}
}

// WithoutComputeUnitPrice omits the compute unit price instruction
func WithoutComputeUnitPrice() AssembleOption {
	return func(o *assembleOptions) {
		o.computeUnitPrice = nil
	}
}

// Assemble builds the token creation transaction. Instructions are always
// emitted in the following order:
//
//  1. Compute unit limit, then the optional compute unit price
//  2. Create the mint account, funded for rent exemption
//  3. Initialize the mint with owner as mint and freeze authority
//  4. Create the owner's associated token account
//  5. Mint the requested supply to the associated token account
//  6. Create the metadata account
//  7. Revoke the freeze authority, if requested
//  8. Revoke the mint authority, if requested
//  9. Transfer the fee to the treasury, if non-zero
//
// The transaction is partially signed by mint and must fit within
// solana.MaxTransactionSize.
func Assemble(
	req *creation.Request,
	quote fee.Quote,
	mint, owner, treasury *common.Account,
	checkpoint Checkpoint,
	opts ...AssembleOption,
) (*Assembled, error) {
	defaultPrice := DefaultComputeUnitPrice
	options := &assembleOptions{
		computeUnitLimit: DefaultComputeUnitLimit,
		computeUnitPrice: &defaultPrice,
	}
	for _, opt := range opts {
		opt(options)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := validateKeys(mint, owner, treasury, quote.Final > 0); err != nil {
		return nil, err
	}

	amount, err := req.SupplyBaseUnits()
	if err != nil {
		return nil, err
	}

	mintKey := ed25519.PublicKey(mint.PublicKey().ToBytes())
	ownerKey := ed25519.PublicKey(owner.PublicKey().ToBytes())

	instructions := []solana.Instruction{
		compute_budget.SetComputeUnitLimit(options.computeUnitLimit),
	}
	if options.computeUnitPrice != nil {
		instructions = append(instructions, compute_budget.SetComputeUnitPrice(*options.computeUnitPrice))
	}

	createAtaIxn, ata, err := token.CreateAssociatedTokenAccount(ownerKey, ownerKey, mintKey)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving associated token account")
	}

	createMetadataIxn, metadataAddress, err := metadata.CreateMetadataAccountV3(mintKey, ownerKey, req.Name, req.Symbol, req.MetadataURI)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving metadata account")
	}

	instructions = append(
		instructions,
		system.CreateAccount(ownerKey, mintKey, token.ProgramKey, checkpoint.RentExemptLamports, token.MintSize),
		token.InitializeMint(mintKey, req.Decimals, ownerKey, ownerKey),
		createAtaIxn,
		token.MintTo(mintKey, ata, ownerKey, amount),
		createMetadataIxn,
	)

	if req.RevokeFreeze {
		instructions = append(instructions, token.SetAuthority(mintKey, ownerKey, nil, token.AuthorityTypeFreezeAccount))
	}
	if req.RevokeMint {
		instructions = append(instructions, token.SetAuthority(mintKey, ownerKey, nil, token.AuthorityTypeMintTokens))
	}

	if quote.Final > 0 {
		instructions = append(instructions, system.Transfer(ownerKey, treasury.PublicKey().ToBytes(), quote.Final))
	}

	txn, err := compile(ownerKey, instructions, mint, checkpoint)
	if err != nil {
		return nil, err
	}

	ataAccount, err := common.NewAccountFromPublicKeyBytes(ata)
	if err != nil {
		return nil, err
	}
	metadataAccount, err := common.NewAccountFromPublicKeyBytes(metadataAddress)
	if err != nil {
		return nil, err
	}

	return &Assembled{
		Transaction: txn,
		Checkpoint:  checkpoint,
		Quote:       quote,

		Mint:     mint,
		Owner:    owner,
		Treasury: treasury,

		AssociatedTokenAccount: ataAccount,
		MetadataAccount:        metadataAccount,
	}, nil
}

// Rebuild assembles a replacement for prev against a fresh checkpoint. Compute
// budget instructions are replaced by a single compute unit limit instruction
// that is always above the limit prev requested, while every other instruction
// is kept as is. The same mint identity signs the new transaction, and any
// previous signatures are discarded.
func Rebuild(prev *Assembled, checkpoint Checkpoint, computeUnitLimit uint32) (*Assembled, error) {
	if prev == nil {
		return nil, errors.New("previous transaction is required")
	}

	if err := validateKeys(prev.Mint, prev.Owner, prev.Treasury, prev.Quote.Final > 0); err != nil {
		return nil, err
	}

	instructions, err := prev.Transaction.DecompileInstructions()
	if err != nil {
		return nil, errors.Wrap(err, "error decompiling previous transaction")
	}

	prevLimit, err := ComputeUnitLimit(instructions)
	if err != nil {
		return nil, err
	}
	computeUnitLimit = raiseComputeUnitLimit(prevLimit, computeUnitLimit)
	if computeUnitLimit <= prevLimit {
		return nil, errors.Errorf("compute unit limit cannot be raised above %d", prevLimit)
	}

	instructions = append(
		[]solana.Instruction{compute_budget.SetComputeUnitLimit(computeUnitLimit)},
		compute_budget.StripInstructions(instructions)...,
	)

	txn, err := compile(prev.Owner.PublicKey().ToBytes(), instructions, prev.Mint, checkpoint)
	if err != nil {
		return nil, err
	}

	return &Assembled{
		Transaction: txn,
		Checkpoint:  checkpoint,
		Quote:       prev.Quote,

		Mint:     prev.Mint,
		Owner:    prev.Owner,
		Treasury: prev.Treasury,

		AssociatedTokenAccount: prev.AssociatedTokenAccount,
		MetadataAccount:        prev.MetadataAccount,
	}, nil
}

// ComputeUnitLimit returns the limit set by the first compute unit limit
// instruction, or zero when there is none.
func ComputeUnitLimit(instructions []solana.Instruction) (uint32, error) {
	for _, ixn := range instructions {
		if !compute_budget.IsComputeBudgetInstruction(ixn) {
			continue
		}

		limit, err := compute_budget.ParseSetComputeUnitLimitIxnData(ixn.Data)
		if errors.Is(err, compute_budget.ErrInvalidInstructionData) {
			// A price instruction
			continue
		}
		return limit, err
	}
	return 0, nil
}

// raiseComputeUnitLimit returns requested when it's above prev, and otherwise
// doubles prev, capped at MaxComputeUnitLimit
func raiseComputeUnitLimit(prev, requested uint32) uint32 {
	if requested > MaxComputeUnitLimit {
		requested = MaxComputeUnitLimit
	}
	if requested > prev {
		return requested
	}

	if prev >= MaxComputeUnitLimit/2 {
		return MaxComputeUnitLimit
	}
	return 2 * prev
}

// Signature returns the transaction ID, which is empty until the fee payer signs
func (a *Assembled) Signature() solana.Signature {
	return a.Transaction.Signature()
}

// IsExpired reports whether the blockhash can no longer land at blockHeight
func (a *Assembled) IsExpired(blockHeight uint64) bool {
	return blockHeight > a.Checkpoint.LastValidBlockHeight
}

func compile(payer ed25519.PublicKey, instructions []solana.Instruction, mint *common.Account, checkpoint Checkpoint) (solana.Transaction, error) {
	txn := solana.NewTransaction(payer, instructions...)
	txn.SetBlockhash(checkpoint.Blockhash)

	if err := txn.CheckSize(); err != nil {
		return solana.Transaction{}, err
	}

	if err := txn.Sign(mint.PrivateKey().ToBytes()); err != nil {
		return solana.Transaction{}, errors.Wrap(err, "error signing with mint")
	}

	return txn, nil
}

func validateKeys(mint, owner, treasury *common.Account, requiresTreasury bool) error {
	if err := mint.Validate(); err != nil {
		return errors.Wrapf(ErrInvalidKey, "mint: %s", err.Error())
	}
	if !mint.HasPrivateKey() {
		return ErrMissingMintKey
	}

	if err := owner.Validate(); err != nil {
		return errors.Wrapf(ErrInvalidKey, "owner: %s", err.Error())
	}

	if requiresTreasury {
		if err := treasury.Validate(); err != nil {
			return errors.Wrapf(ErrInvalidKey, "treasury: %s", err.Error())
		}
	}

	return nil
}
