// Package sink implements zipimport.Sink for the supported destination databases.
//
// Backends register a Factory per connection-string scheme; Open picks the
// backend from the connection string:
//
//   - postgres://, postgresql://, ADO.NET strings: pgx (see internal/db)
//   - mysql://: go-sql-driver/mysql
//   - sqlite://, file:: modernc.org/sqlite
//   - sqlserver://: go-mssqldb
//
// Every backend writes the same nine columns and stores empty values of the
// nullable columns as NULL.
package sink
