package database

// Table names a MongoDB collection backing a model.
type Table interface {
	GetTableName() string
}
