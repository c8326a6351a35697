// Package store defines interfaces for data persistence operations along
// with the pagination policy shared by all finders. The interfaces abstract
// the underlying data storage mechanism from the application's core logic,
// allowing business rules to remain independent of specific database
// technologies or persistence details.
package store
