package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/core/types"
	"academicchain/crypto"
)

// payloadBuilder registers instruction flags on fs and returns a function
// that assembles the payload once fs is parsed.
type payloadBuilder func(fs *flag.FlagSet) func() (interface{}, error)

var txBuilders = map[types.TxType]payloadBuilder{
	types.TxTypeBootstrap: func(fs *flag.FlagSet) func() (interface{}, error) {
		treasury := fs.String("treasury", "", "identity receiving credit payments")
		mint := fs.String("mint", "", "credit mint symbol (default CREDIT)")
		price := fs.Uint64("price", 0, "credit price in native units (0 keeps the default)")
		return func() (interface{}, error) {
			addr, err := requireIdentity("--treasury", *treasury)
			if err != nil {
				return nil, err
			}
			return types.BootstrapPayload{Treasury: addr, CreditMint: strings.TrimSpace(*mint), CreditPrice: *price}, nil
		}
	},
	types.TxTypePurchaseCredits: func(fs *flag.FlagSet) func() (interface{}, error) {
		amount := fs.Uint64("amount", 0, "credits to buy")
		return func() (interface{}, error) {
			if *amount == 0 {
				return nil, errors.New("--amount must be positive")
			}
			return types.PurchaseCreditsPayload{Amount: *amount}, nil
		}
	},
	types.TxTypeCreateCourse: func(fs *flag.FlagSet) func() (interface{}, error) {
		id := fs.String("id", "", "course id")
		name := fs.String("name", "", "course name")
		instructor := fs.String("instructor", "", "instructor identity")
		credits := fs.Uint64("credits", 0, "credits required to enroll")
		return func() (interface{}, error) {
			addr, err := requireIdentity("--instructor", *instructor)
			if err != nil {
				return nil, err
			}
			return types.CreateCoursePayload{CourseID: *id, CourseName: strings.TrimSpace(*name), Instructor: addr, RequiredCredits: *credits}, nil
		}
	},
	types.TxTypeRegisterCourse: func(fs *flag.FlagSet) func() (interface{}, error) {
		course := fs.String("course", "", "course id")
		return func() (interface{}, error) {
			return types.RegisterCoursePayload{CourseID: *course}, nil
		}
	},
	types.TxTypeCompleteCourse: func(fs *flag.FlagSet) func() (interface{}, error) {
		course := fs.String("course", "", "course id")
		student := fs.String("student", "", "student identity")
		grade := fs.Uint("grade", 0, "grade between 0 and 100")
		return func() (interface{}, error) {
			addr, err := requireIdentity("--student", *student)
			if err != nil {
				return nil, err
			}
			if *grade > 255 {
				return nil, fmt.Errorf("--grade %d out of range", *grade)
			}
			return types.CompleteCoursePayload{CourseID: *course, Student: addr, Grade: uint8(*grade)}, nil
		}
	},
	types.TxTypeMintCertificate: func(fs *flag.FlagSet) func() (interface{}, error) {
		course := fs.String("course", "", "course id")
		uri := fs.String("uri", "", "certificate metadata URI")
		return func() (interface{}, error) {
			return types.MintCertificatePayload{CourseID: *course, MetadataURI: strings.TrimSpace(*uri)}, nil
		}
	},
	types.TxTypeClaimGraduation: func(fs *flag.FlagSet) func() (interface{}, error) {
		courses := fs.String("courses", "", "comma separated course ids required to graduate")
		uri := fs.String("uri", "", "graduation metadata URI")
		return func() (interface{}, error) {
			return types.ClaimGraduationPayload{RequiredCourses: splitList(*courses), MetadataURI: strings.TrimSpace(*uri)}, nil
		}
	},
	types.TxTypeSetCourseActive: func(fs *flag.FlagSet) func() (interface{}, error) {
		course := fs.String("course", "", "course id")
		active := fs.Bool("active", true, "whether the course accepts registrations")
		return func() (interface{}, error) {
			return types.SetCourseActivePayload{CourseID: *course, Active: *active}, nil
		}
	},
	types.TxTypeSetCreditPrice: func(fs *flag.FlagSet) func() (interface{}, error) {
		price := fs.Uint64("price", 0, "new credit price in native units")
		return func() (interface{}, error) {
			return types.SetCreditPricePayload{Price: *price}, nil
		}
	},
}

func runTxCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, txUsage())
		return 1
	}
	txType, err := types.ParseTxType(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "Unknown tx instruction: %s\n", args[0])
		fmt.Fprintln(stderr, txUsage())
		return 1
	}
	fs := flag.NewFlagSet("tx "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	keyPath := fs.String("key", "academic.keystore", "signing keystore")
	nonce := fs.Int64("nonce", -1, "transaction nonce (default: fetched from the node)")
	chainID := fs.Uint64("chain-id", 0, "chain id (default: fetched from the node)")
	build := txBuilders[txType](fs)
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return 1
	}
	payload, err := build()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := loadKey(*keyPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	tx, err := buildSignedTx(key, txType, payload, *chainID, *nonce)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	result, rpcErr, err := rpcCall("academic_sendTransaction", []interface{}{tx}, true)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	var receipt types.Receipt
	if err := json.Unmarshal(result, &receipt); err == nil && !receipt.Succeeded() {
		if receipt.ErrorName != "" {
			fmt.Fprintf(stderr, "Transaction failed: %s (code %d, %s): %s\n", receipt.ErrorName, receipt.ErrorCode, receipt.ErrorKind, receipt.Error)
		} else {
			fmt.Fprintf(stderr, "Transaction failed (%s): %s\n", receipt.ErrorKind, receipt.Error)
		}
		return 2
	}
	return 0
}

// buildSignedTx fills in the chain id and nonce from the node when they are
// not supplied, then signs.
func buildSignedTx(key *crypto.PrivateKey, txType types.TxType, payload interface{}, chainID uint64, nonce int64) (*types.Transaction, error) {
	if chainID == 0 {
		id, err := fetchChainID()
		if err != nil {
			return nil, err
		}
		chainID = id
	}
	if nonce < 0 {
		next, err := fetchNonce(key.PubKey().Address().Common())
		if err != nil {
			return nil, err
		}
		nonce = int64(next)
	}
	tx := &types.Transaction{ChainID: new(big.Int).SetUint64(chainID), Type: txType, Nonce: uint64(nonce)}
	if err := tx.SetPayload(payload); err != nil {
		return nil, err
	}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}

func fetchChainID() (uint64, error) {
	result, rpcErr, err := rpcCall("academic_chainInfo", nil, false)
	if err != nil {
		return 0, err
	}
	if rpcErr != nil {
		return 0, fmt.Errorf("chain info: %s", rpcErr.Message)
	}
	var info struct {
		ChainID string `json:"chainId"`
	}
	if err := json.Unmarshal(result, &info); err != nil {
		return 0, fmt.Errorf("decode chain info: %w", err)
	}
	id, ok := new(big.Int).SetString(info.ChainID, 10)
	if !ok || !id.IsUint64() {
		return 0, fmt.Errorf("node reported invalid chain id %q", info.ChainID)
	}
	return id.Uint64(), nil
}

func fetchNonce(addr common.Address) (uint64, error) {
	result, rpcErr, err := rpcCall("academic_getAccount", []interface{}{addr.Hex()}, false)
	if err != nil {
		return 0, err
	}
	if rpcErr != nil {
		return 0, fmt.Errorf("account lookup: %s", rpcErr.Message)
	}
	var account struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := json.Unmarshal(result, &account); err != nil {
		return 0, fmt.Errorf("decode account: %w", err)
	}
	return account.Nonce, nil
}

func requireIdentity(flagName, value string) (common.Address, error) {
	if strings.TrimSpace(value) == "" {
		return common.Address{}, fmt.Errorf("%s is required", flagName)
	}
	addr, err := crypto.ParseIdentity(value)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", flagName, err)
	}
	return addr, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func txUsage() string {
	names := make([]string, 0, len(txBuilders))
	for t := range txBuilders {
		names = append(names, t.String())
	}
	sort.Strings(names)
	return "Usage:\n  academic-cli tx <instruction> --key FILE [flags]\n\nInstructions:\n  " + strings.Join(names, "\n  ")
}
