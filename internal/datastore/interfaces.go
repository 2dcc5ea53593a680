// interfaces.go: defines the interface for the database operations.
package datastore

import (
	"errors"

	"gorm.io/gorm"

	"github.com/sigi-ilum/sigi-go/internal/conf"
)

// ErrNoFormula is returned when a formula operation targets an indicator
// that has no formula attached.
var ErrNoFormula = errors.New("indicator has no formula")

// FormulaKey selects the column used to group formulas.
type FormulaKey string

const (
	FormulaKeyHash       FormulaKey = "hash"
	FormulaKeyNormalized FormulaKey = "normalized"
)

// column returns the database column backing the key. Keys are a closed set,
// never caller-supplied strings, so this is safe to interpolate.
func (k FormulaKey) column() string {
	return string(k)
}

// MunicipalityFilter holds the optional exact-match list filters.
// All supplied fields are ANDed together.
type MunicipalityFilter struct {
	Name       string
	StateCode  string
	TenderID   string
	TenderYear *int
}

// Empty reports whether no filter field is set.
func (f *MunicipalityFilter) Empty() bool {
	return f.Name == "" && f.StateCode == "" && f.TenderID == "" && f.TenderYear == nil
}

// FormulaPatch carries a partial formula update; nil fields are left untouched.
type FormulaPatch struct {
	Raw        *string
	Normalized *string
	Hash       *string
}

// Empty reports whether the patch changes nothing.
func (p *FormulaPatch) Empty() bool {
	return p.Raw == nil && p.Normalized == nil && p.Hash == nil
}

// FormulaOwner is a formula row joined with its owning indicator and municipality,
// used when grouping recurring formulas across tenders.
type FormulaOwner struct {
	IndicatorID      uint
	IndicatorName    string
	Description      *string
	MunicipalityName string
	StateCode        string
	Raw              *string
	Normalized       *string
	Hash             *string
}

// Interface abstracts the underlying database implementation and defines the
// operations the rest of the service is allowed to perform.
type Interface interface {
	Open() error
	Close() error

	// Municipality lifecycle
	SaveMunicipality(m *Municipality) error
	GetMunicipality(id uint) (Municipality, error)
	GetAllMunicipalities() ([]Municipality, error)
	SearchMunicipalities(filter *MunicipalityFilter) ([]Municipality, error)
	FindMunicipalityByNameLike(fragment string) (Municipality, error)
	MunicipalityExists(name, stateCode string, tenderID *string, tenderYear *int) (bool, error)
	UpdateMunicipality(id uint, m *Municipality) error
	DeleteMunicipality(id uint) error
	DeleteAllMunicipalities() (int64, error)
	CountMunicipalities() (int64, error)

	// Indicator field edits
	GetIndicator(id uint) (Indicator, error)
	CountIndicators() (int64, error)
	UpdateFormula(indicatorID uint, patch *FormulaPatch) error
	ReplaceTags(indicatorID uint, tags []string) error

	// Formula grouping
	DuplicatedFormulaKeys(key FormulaKey) ([]string, error)
	FormulaOwnersByKey(key FormulaKey, values []string) ([]FormulaOwner, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new store instance based on the provided settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}
