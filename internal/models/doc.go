// Package models defines the domain entities shared by the authorization flow, the saved-track fetcher and the snapshot store.
//
// The package contains two categories of types:
//
// 1. Value types produced by a run and never persisted:
//   - [AccessToken] : Bearer credential returned by the token endpoint
//   - [Track] : Saved track with its credited artists
//   - [Artist] : Artist credit, identified by the provider id
//   - [ArtistTally] : Number of saved tracks crediting one artist
//
// 2. Persistent entities backed by the snapshot database:
//   - [Snapshot] : A saved ranking with its tallies
//
// Persistent entities implement the [Model] interface; [Repository] defines the storage operations.
package models
