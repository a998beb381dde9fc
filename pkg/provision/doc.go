// Package provision drives storage container provisioning: container
// creation, protection domains, stretched (metro) relationships, and
// datastore mounts. The container configuration is one value with
// independently-set fields; the single cross-field rule is validated
// centrally before any endpoint is contacted.
package provision
