// Package server implements a loopback opentick server that keeps its data
// in memory. It speaks the same wire protocol as a real opentick server and
// is used by the tests and by "otick serve" for local development. It is not
// a database: only a tiny subset of SQL is understood.
//
// Supported statements (case-insensitive, ? marks a positional argument):
//
//	CREATE DATABASE [IF NOT EXISTS] db
//	CREATE TABLE [IF NOT EXISTS] [db.]t (...)
//	DROP TABLE [db.]t
//	INSERT INTO [db.]t VALUES (v, ?, ...)
//	SELECT * FROM [db.]t
//	SELECT v, ?, ...
//	DELETE FROM [db.]t
//
// Replies follow the conventions of opentick: a string is an error message,
// prepare returns an integer handle, queries return a sequence of rows and
// everything else is acknowledged with null. Prepared statement handles and
// the selected database belong to the connection.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Transport:      common.ServerTransportConfig{Endpoint: "127.0.0.1:1116"},
//	  WorkersPerConn: 8,
//	  Databases:      []string{"trading"},
//	}
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport(serializer.NewBSONSerializer(), config.WorkersPerConn))
//	go s.Serve()
//	defer s.Close()
package server
