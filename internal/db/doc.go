// Package db opens PostgreSQL connection pools for the importer.
//
// Connection strings are accepted in PostgreSQL URI or ADO.NET form. Besides
// username/password, pools can authenticate with short-lived cloud tokens
// (AWS RDS IAM, Azure Entra ID) or through the Cloud SQL Go Connector.
package db
