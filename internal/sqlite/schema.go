package sqlite

// Schema DDL. Rows of every logical table live in records as JSON
// documents keyed by (tbl, id).
const (
	createRecords = `CREATE TABLE IF NOT EXISTS records (
    tbl TEXT NOT NULL,
    id TEXT NOT NULL,
    data TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (tbl, id)
);`

	createBuckets = `CREATE TABLE IF NOT EXISTS buckets (
    name TEXT PRIMARY KEY,
    allowed_types TEXT NOT NULL,
    max_size INTEGER NOT NULL
);`

	createObjects = `CREATE TABLE IF NOT EXISTS objects (
    bucket TEXT NOT NULL,
    path TEXT NOT NULL,
    content_type TEXT NOT NULL,
    size INTEGER NOT NULL,
    data BLOB NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (bucket, path),
    FOREIGN KEY (bucket) REFERENCES buckets(name)
);`
)

// Index DDL for common queries.
const (
	idxRecordsCreated = `CREATE INDEX IF NOT EXISTS idx_records_created ON records(tbl, created_at);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createRecords,
	createBuckets,
	createObjects,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxRecordsCreated,
}
