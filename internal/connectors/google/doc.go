// Package google provides shared infrastructure for the Drive connector:
//   - Token sources for service account keys and stored OAuth user tokens
//   - Service factory for the Drive API client
//   - Error mapping that marks rate limits and server errors as transient
//   - Rate limiting to respect Drive API quotas
//
// # Usage
//
//	ts, err := google.NewTokenSource(ctx, credentialsFile, tokenFile)
//	svc, err := google.NewDriveService(ctx, ts)
//
// # OAuth2 Scopes
//
// Only https://www.googleapis.com/auth/drive.readonly is requested.
package google
