package types

import "context"

// Standard table and bucket names.
const (
	PropertiesTable = "properties"
	CountriesTable  = "countries"
	StatesTable     = "states"
	CitiesTable     = "cities"

	ImagesBucket   = "property-images"
	VideosBucket   = "property-videos"
	FallbackBucket = "media"
)

// StandardTableNames lists the tables a backend must serve.
var StandardTableNames = []string{
	PropertiesTable,
	CountriesTable,
	StatesTable,
	CitiesTable,
}

// ColumnID is the primary key column shared by every table.
const ColumnID = "id"

// Query narrows a Select. Eq holds column equality predicates combined with
// AND; an empty Query selects every row.
type Query struct {
	Eq         map[string]any
	OrderBy    string
	Descending bool
	Limit      int
}

// Backend is the remote document store. Every method blocks until the
// backend answers or ctx is done. Errors returned by a reachable backend are
// *BackendError values.
type Backend interface {
	// Select returns the rows of table matching q.
	Select(ctx context.Context, table string, q Query) ([]Record, error)

	// Insert stores row and returns the persisted row, including any
	// server-generated columns. A missing id is generated by the backend.
	Insert(ctx context.Context, table string, row Record) (Record, error)

	// Update merges patch into the row identified by id and returns the
	// persisted row. Returns ErrNotFound if no such row exists.
	Update(ctx context.Context, table, id string, patch Record) (Record, error)

	// Delete removes the rows with the given ids. Missing ids are ignored.
	Delete(ctx context.Context, table string, ids ...string) error
}

// ObjectStorage stores binary media under bucket/path.
type ObjectStorage interface {
	// UploadObject stores data at bucket/path. It fails when the bucket
	// rejects the content type or the size.
	UploadObject(ctx context.Context, bucket, path string, data []byte, contentType string) error

	// PublicURL returns the public URL of bucket/path. It does not check
	// that the object exists.
	PublicURL(bucket, path string) string
}
