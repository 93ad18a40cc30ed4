// Package client contains the client-side building blocks that talk to the
// remote DonorLink store.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see Accessor) for one collection:
//     ListAll, GetByKey, ListByKey, Create, UpdateFields and Delete.
//  2. A REST implementation (RESTAccessor) for a PostgREST-style gateway,
//     built on resty, and a direct SQL implementation (PostgresAccessor)
//     over the pgx database/sql driver.
//  3. Stats sources counting donors and requests for the dashboard.
//  4. Local persistence bootstrap utilities (InitDatabase, RunMigrations)
//     wiring an SQLite database and applying embedded goose migrations.
//
// Listing operations return rows newest first. GetByKey returns the newest
// row for an access code.
//
// # Error Handling
//
// Every round-trip failure is returned as *common.RemoteError carrying the
// cause. Transport failures wrap common.ErrUnavailable, rejected credentials
// wrap common.ErrUnauthorized, and keyed lookups that match nothing return
// *common.NotFoundError. No operation retries.
//
// See Also
//
//   - Interface:  Accessor, StatsSource
//   - REST impl:  RESTAccessor, RESTStats
//   - SQL impl:   PostgresAccessor, PostgresStats
//   - DB helpers: InitDatabase, RunMigrations
package client
