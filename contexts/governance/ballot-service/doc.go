// Package ballot implements the Ballot Service inside the governance context.
//
// A ballot is created with a fixed, ordered list of proposals and a single
// chairperson. The chairperson enfranchises voters, voters either vote
// directly or delegate their weight along a delegation chain, and the
// leading proposal is read back from the tally.
//
// Layering:
// - domain: ballot aggregate, authority gate, delegation resolver, vote tally
// - application: dispatcher use cases, result queries, outbox workers
// - ports: persistence, clock, id and metrics boundaries
// - adapters: memory, gorm (postgres/sqlite) and HTTP handler implementations
// - transport: module-private DTOs for HTTP contracts
package ballot
