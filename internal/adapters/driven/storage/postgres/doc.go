// Package postgres implements the metadata store and vector index on
// PostgreSQL with the pgvector extension.
//
// The file_metadata table and the langchain_pg_collection /
// langchain_pg_embedding pair match the layout used by existing
// LangChain PGVector deployments, so an index built here can be queried by
// retrievers that already read those tables. Record metadata is stored as
// JSONB and selected by its file_id key.
package postgres
