package store

// schemaVersion is bumped whenever the persisted Query encoding changes.
// A cache written under another version is treated as cold.
const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS query_cache (
    fingerprint          TEXT PRIMARY KEY,
    queries              BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS cache_meta (
    key                  TEXT PRIMARY KEY,
    value                TEXT NOT NULL
);
`
