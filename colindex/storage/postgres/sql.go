package postgres

import "github.com/colindex/colindex/colindex/storage"

var SQLTemplates = storage.SQL{
	GetMeta:               "SELECT value FROM meta WHERE key = $1",
	SetMeta:               "INSERT INTO meta(key,value) VALUES($1,$2) ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value",
	CleanupExpiredCursors: "DELETE FROM cursor_store WHERE expires_at < $1",
	GetCursor:             "SELECT payload, expires_at FROM cursor_store WHERE handle = $1",
	PutCursor:             "INSERT INTO cursor_store(handle, payload, created_at, expires_at) VALUES($1,$2,$3,$4)",
	PutCell: `INSERT INTO cells(partition, row_key, column_name, native_type, value) VALUES($1,$2,$3,$4,$5)
	          ON CONFLICT(partition, row_key, column_name)
	          DO UPDATE SET native_type=EXCLUDED.native_type, value=EXCLUDED.value`,
	GetCell:        "SELECT native_type, value FROM cells WHERE partition = $1 AND row_key = $2 AND column_name = $3",
	DeleteRow:      "DELETE FROM cells WHERE partition = $1 AND row_key = $2",
	ListPartitions: "SELECT DISTINCT partition FROM cells ORDER BY partition",
	ScanPartition:  "SELECT row_key, column_name, native_type, value FROM cells WHERE partition = $1 ORDER BY row_key, column_name",
	GetRows:        "SELECT row_key, column_name, native_type, value FROM cells WHERE partition = $1 AND row_key IN (%s) ORDER BY row_key, column_name",
	CountRows:      "SELECT COUNT(*) FROM (SELECT DISTINCT partition, row_key FROM cells) AS r",
}
