// Package client contains the client-side building blocks that talk to
// storage outside the process.
//
// # Overview
//
//  1. Client is the transport-agnostic contract of the identity gateway:
//     SignUp, SignIn, SignInWithIdp, Resume, SignOut, PresignUpload, Ping.
//  2. GRPCClient implements it over gRPC. It injects the access token through
//     an interceptor, refreshes an expired token once and retries, and maps
//     gRPC status codes to the sentinel errors of package common.
//  3. InitDatabase and RunMigrations bootstrap the local SQLite file with the
//     embedded goose migrations.
//
// GRPCClient is safe for concurrent use; the token pair is guarded by a
// mutex. All operations accept a context.Context and honor cancellation.
package client
