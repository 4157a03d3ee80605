/*
Package segments implements client segmentation lookup and recommendation
matching.

PURPOSE:
  Every client is clustered along six independent segment dimensions
  (demographic, financial, transactional, product, digital, relationship).
  Catalog entries (products and offers) are each scoped to exactly one
  (dimension, cluster) pair. This package resolves a client's segment
  memberships and joins them against the catalog to produce personalized
  recommendations.

CORE TYPES:
  Dimension:      One of the six segmentation axes (0..5)
  Profile:        A client's age plus their cluster id per dimension
  Entry:          A catalog row (product or offer)
  Recommendation: A catalog entry projected for external callers

PIPELINE:
  Resolver.Resolve(clientID)     -> Profile
  Matcher.Match(profile, kind)   -> []Recommendation

BUSINESS RULES:
  - A null segment value matches nothing (never a catalog cluster id)
  - Minors (age < 18) only receive entries whose eligibility code is "0"
  - Results are de-duplicated by catalog entry ID
  - Catalog ID and CLUS_ID are join artifacts and never leave this package

SEE ALSO:
  - resolver.go: Segment resolution
  - matcher.go:  Catalog join and eligibility filtering
  - store/sqlite: Persistent backing store
*/
package segments

import "context"

// =============================================================================
// SEGMENT DIMENSIONS
// =============================================================================

// Dimension identifies one of the six segmentation axes. The integer values
// match the SEG_ID column of the catalog tables and are part of the stored
// data contract, not an implementation detail.
type Dimension int

const (
	Demographic Dimension = iota
	Financial
	Transactional
	Product
	Digital
	Relationship

	numDimensions
)

// Dimensions lists all six dimensions in SEG_ID order. Iteration order
// determines the union order of match results.
var Dimensions = [numDimensions]Dimension{
	Demographic, Financial, Transactional, Product, Digital, Relationship,
}

// dimensionColumns maps each dimension to its clients-table column.
var dimensionColumns = [numDimensions]string{
	"DEM_SEG", "FIN_SEG", "TRANS_SEG", "PROD_SEG", "DIG_SEG", "REL_SEG",
}

// Column returns the clients-table column holding this dimension's cluster id.
// External callers see this name in place of the raw SEG_ID integer.
func (d Dimension) Column() string {
	if d < 0 || d >= numDimensions {
		return ""
	}
	return dimensionColumns[d]
}

// Valid reports whether d is one of the six known dimensions.
func (d Dimension) Valid() bool {
	return d >= 0 && d < numDimensions
}

// =============================================================================
// CATALOG
// =============================================================================

// CatalogKind selects which catalog table a match runs against.
type CatalogKind string

const (
	Products CatalogKind = "products"
	Offers   CatalogKind = "offers"
)

// EligibilityCode is the categorical eligibility flag carried by catalog
// entries. It is compared by value, never coerced to a boolean: the value
// space in source data may exceed {0,1}.
type EligibilityCode string

// MinorEligible is the only code that permits the entry for clients under 18.
const MinorEligible EligibilityCode = "0"

// PermitsMinors reports whether an entry with this code may be shown to a
// client under 18.
func (c EligibilityCode) PermitsMinors() bool {
	return c == MinorEligible
}

// Entry is one catalog row. ID and ClusID exist only to drive the join and
// are stripped before results leave the package.
type Entry struct {
	ID     string
	SegID  Dimension
	ClusID int
	Prod   string
	Elig   EligibilityCode
	Descr  string
	Link   string // offers only; empty for products
}

// Recommendation is the externally visible projection of a matched Entry.
// SEG_ID carries the dimension column name instead of the raw integer.
type Recommendation struct {
	Segment string          `json:"SEG_ID"`
	Prod    string          `json:"PROD"`
	Elig    EligibilityCode `json:"ELIG"`
	Descr   string          `json:"DESCR"`
	Link    string          `json:"LINK,omitempty"`
}

// =============================================================================
// PROFILE
// =============================================================================

// Profile holds a client's resolved segment memberships. A dimension absent
// from Values had a null cluster id and can match no catalog entry. Age is
// nil when the record carries no age.
type Profile struct {
	ClientID string
	Age      *int
	Values   map[Dimension]int
}

// Minor reports whether the eligibility filter applies. An unknown age is
// treated like an adult, preserving the behavior of the source system.
func (p *Profile) Minor() bool {
	return p.Age != nil && *p.Age < 18
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// ProfileStore reads a client's age and six segment values in one logical
// read. Implementations return (nil, nil) when no record exists for the id;
// the Resolver converts that into ErrClientNotFound.
type ProfileStore interface {
	Profile(ctx context.Context, clientID string) (*Profile, error)
}

// Catalog performs one indexed lookup per (kind, dimension, cluster) triple.
// An empty result is not an error.
type Catalog interface {
	Entries(ctx context.Context, kind CatalogKind, dim Dimension, cluster int) ([]Entry, error)
}
