package sqlite

const ddlBase = `
CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT
);

CREATE TABLE IF NOT EXISTS cells (
  partition   TEXT NOT NULL,
  row_key     TEXT NOT NULL,
  column_name TEXT NOT NULL,
  native_type TEXT NOT NULL,
  value       TEXT NOT NULL,
  PRIMARY KEY (partition, row_key, column_name)
);
CREATE INDEX IF NOT EXISTS idx_cells_row ON cells(partition, row_key);

CREATE TABLE IF NOT EXISTS cursor_store (
  handle     TEXT PRIMARY KEY,
  payload    TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cursor_expires ON cursor_store(expires_at);
`
