package metadata

import (
	"crypto/ed25519"

	"github.com/solana-token-factory/factory/pkg/solana"
	"github.com/solana-token-factory/factory/pkg/solana/binary"
)

const (
	InstructionTypeCreateMetadataAccountV3 uint8 = 33
)

// CreateMetadataAccountV3InstructionArgs carries the DataV2 fields. Creators,
// collection and uses are always encoded as absent, and the account is
// always left mutable.
type CreateMetadataAccountV3InstructionArgs struct {
	Name                 string
	Symbol               string
	Uri                  string
	SellerFeeBasisPoints uint16
	IsMutable            bool
}

type CreateMetadataAccountV3InstructionAccounts struct {
	Metadata        ed25519.PublicKey
	Mint            ed25519.PublicKey
	MintAuthority   ed25519.PublicKey
	Payer           ed25519.PublicKey
	UpdateAuthority ed25519.PublicKey
}

// EncodeCreateMetadataAccountV3Data serializes the instruction payload for a
// mutable metadata account with no creators, collection or uses. The URI is
// passed through ResolveURI first. Inputs are encoded as given.
func EncodeCreateMetadataAccountV3Data(name, symbol, uri string) []byte {
	return (&CreateMetadataAccountV3InstructionArgs{
		Name:      name,
		Symbol:    symbol,
		Uri:       ResolveURI(uri),
		IsMutable: true,
	}).Marshal()
}

func (args *CreateMetadataAccountV3InstructionArgs) Marshal() []byte {
	size := 1 +
		binary.StringSize(args.Name) +
		binary.StringSize(args.Symbol) +
		binary.StringSize(args.Uri) +
		2 + // seller_fee_basis_points
		5 // creators, collection, uses, is_mutable, collection_details

	return binary.NewEncoder(size).
		Uint8(InstructionTypeCreateMetadataAccountV3).
		String(args.Name).
		String(args.Symbol).
		String(args.Uri).
		Uint16(args.SellerFeeBasisPoints).
		Uint8(0). // creators: None
		Uint8(0). // collection: None
		Uint8(0). // uses: None
		Bool(args.IsMutable).
		Uint8(0). // collection_details: None
		Bytes()
}

// DecodeCreateMetadataAccountV3Data parses a payload produced by
// EncodeCreateMetadataAccountV3Data. Payloads carrying creators, a collection,
// uses or collection details are rejected.
func DecodeCreateMetadataAccountV3Data(data []byte) (*CreateMetadataAccountV3InstructionArgs, error) {
	d := binary.NewDecoder(data)
	if d.Uint8() != InstructionTypeCreateMetadataAccountV3 {
		return nil, ErrInvalidInstructionData
	}

	args := &CreateMetadataAccountV3InstructionArgs{
		Name:                 d.String(),
		Symbol:               d.String(),
		Uri:                  d.String(),
		SellerFeeBasisPoints: d.Uint16(),
	}

	creators, collection, uses := d.Uint8(), d.Uint8(), d.Uint8()
	isMutable := d.Uint8()
	collectionDetails := d.Uint8()

	if d.Err() != nil || d.Remaining() != 0 {
		return nil, ErrInvalidInstructionData
	}
	if creators != 0 || collection != 0 || uses != 0 || collectionDetails != 0 || isMutable > 1 {
		return nil, ErrInvalidInstructionData
	}
	args.IsMutable = isMutable == 1

	return args, nil
}

func NewCreateMetadataAccountV3Instruction(
	accounts *CreateMetadataAccountV3InstructionAccounts,
	args *CreateMetadataAccountV3InstructionArgs,
) solana.Instruction {
	return solana.Instruction{
		Program: PROGRAM_ID,

		// Instruction args
		Data: args.Marshal(),

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Metadata,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Mint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MintAuthority,
				IsWritable: false,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Payer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.UpdateAuthority,
				IsWritable: false,
				IsSigner:   true,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}

// CreateMetadataAccountV3 builds the instruction for the mint's derived
// metadata account, with owner acting as mint authority, payer and update
// authority.
func CreateMetadataAccountV3(mint, owner ed25519.PublicKey, name, symbol, uri string) (solana.Instruction, ed25519.PublicKey, error) {
	address, _, err := GetMetadataAddress(mint)
	if err != nil {
		return solana.Instruction{}, nil, err
	}

	args := &CreateMetadataAccountV3InstructionArgs{
		Name:      name,
		Symbol:    symbol,
		Uri:       ResolveURI(uri),
		IsMutable: true,
	}

	return NewCreateMetadataAccountV3Instruction(
		&CreateMetadataAccountV3InstructionAccounts{
			Metadata:        address,
			Mint:            mint,
			MintAuthority:   owner,
			Payer:           owner,
			UpdateAuthority: owner,
		},
		args,
	), address, nil
}

type DecompiledCreateMetadataAccountV3 struct {
	Metadata        ed25519.PublicKey
	Mint            ed25519.PublicKey
	MintAuthority   ed25519.PublicKey
	Payer           ed25519.PublicKey
	UpdateAuthority ed25519.PublicKey
	Args            *CreateMetadataAccountV3InstructionArgs
}

func DecompileCreateMetadataAccountV3(ixn solana.Instruction) (*DecompiledCreateMetadataAccountV3, error) {
	if !ixn.IsForProgram(PROGRAM_ID) {
		return nil, ErrInvalidProgram
	}
	if len(ixn.Accounts) != 6 {
		return nil, ErrInvalidInstructionData
	}

	args, err := DecodeCreateMetadataAccountV3Data(ixn.Data)
	if err != nil {
		return nil, err
	}

	return &DecompiledCreateMetadataAccountV3{
		Metadata:        ixn.Accounts[0].PublicKey,
		Mint:            ixn.Accounts[1].PublicKey,
		MintAuthority:   ixn.Accounts[2].PublicKey,
		Payer:           ixn.Accounts[3].PublicKey,
		UpdateAuthority: ixn.Accounts[4].PublicKey,
		Args:            args,
	}, nil
}
