// Package types defines the entities, update requests, store interface, and
// error taxonomy shared by the ccm configuration manager.
//
// Accounts bind a credential to an endpoint by the endpoint's URL string,
// directories name the filesystem targets that receive settings on switch,
// and base URLs describe endpoints with their own default environment.
// WebDAV profiles and sync logs describe remote backups of the whole set.
package types
