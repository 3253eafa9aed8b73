package genesis

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"academicchain/native/academic"
)

// GenesisSpec is the YAML document describing the initial academic state.
type GenesisSpec struct {
	GenesisTime string            `yaml:"genesisTime"`
	ChainID     *uint64           `yaml:"chainId,omitempty"`
	ProgramID   string            `yaml:"programId,omitempty"`
	Authority   string            `yaml:"authority"`
	Treasury    string            `yaml:"treasury"`
	CreditMint  string            `yaml:"creditMint,omitempty"`
	CreditPrice uint64            `yaml:"creditPrice,omitempty"`
	Balances    map[string]string `yaml:"balances,omitempty"` // identity -> native amount
	Courses     []CourseSpec      `yaml:"courses,omitempty"`

	genesisTimestamp time.Time
	programID        common.Address
	authority        common.Address
	treasury         common.Address
	balances         []allocation
}

type CourseSpec struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Instructor      string `yaml:"instructor"`
	RequiredCredits uint64 `yaml:"requiredCredits"`
	Active          *bool  `yaml:"active,omitempty"`

	instructor common.Address
}

type allocation struct {
	account common.Address
	amount  *big.Int
}

// LoadGenesisSpec reads and validates a genesis document. Unknown keys are
// rejected so typos surface at startup.
func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

func (s *GenesisSpec) ChainIDValue() (uint64, bool) {
	if s.ChainID == nil {
		return 0, false
	}
	return *s.ChainID, true
}

// ProgramAddress returns the configured program id, or the default program
// id when the document leaves it unset.
func (s *GenesisSpec) ProgramAddress() common.Address { return s.programID }

func (s *GenesisSpec) validate() error {
	parsedTime, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = parsedTime

	if s.ChainID != nil && *s.ChainID == 0 {
		return fmt.Errorf("chainId must be positive")
	}
	s.programID = academic.DefaultProgramID
	if trimmed := strings.TrimSpace(s.ProgramID); trimmed != "" {
		if !common.IsHexAddress(trimmed) {
			return fmt.Errorf("programId must be a hex address")
		}
		s.programID = common.HexToAddress(trimmed)
	}
	if s.authority, err = ParseAccount(s.Authority); err != nil {
		return fmt.Errorf("authority: %w", err)
	}
	if s.treasury, err = ParseAccount(s.Treasury); err != nil {
		return fmt.Errorf("treasury: %w", err)
	}

	s.balances = s.balances[:0]
	seen := make(map[common.Address]struct{}, len(s.Balances))
	for raw, value := range s.Balances {
		addr, err := ParseAccount(raw)
		if err != nil {
			return fmt.Errorf("balances[%s]: %w", raw, err)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("balances[%s]: duplicate account", raw)
		}
		seen[addr] = struct{}{}
		amount, err := parseAmountString(value)
		if err != nil {
			return fmt.Errorf("balances[%s]: %w", raw, err)
		}
		s.balances = append(s.balances, allocation{account: addr, amount: amount})
	}
	sortAllocations(s.balances)

	ids := make(map[string]struct{}, len(s.Courses))
	for i := range s.Courses {
		c := &s.Courses[i]
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("courses[%d]: id must be provided", i)
		}
		if _, dup := ids[c.ID]; dup {
			return fmt.Errorf("courses[%d]: duplicate id %q", i, c.ID)
		}
		ids[c.ID] = struct{}{}
		if c.instructor, err = ParseAccount(c.Instructor); err != nil {
			return fmt.Errorf("courses[%d]: instructor: %w", i, err)
		}
	}
	return nil
}

func sortAllocations(list []allocation) {
	sort.Slice(list, func(i, j int) bool {
		return bytes.Compare(list[i].account.Bytes(), list[j].account.Bytes()) < 0
	})
}

func parseAmountString(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}
