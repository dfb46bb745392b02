// Package storage defines the on-disk layout of the portal's data
// root and the filesystem primitives shared by the stores.
//
// The portal persists everything as plain files: durable,
// hierarchical and human-inspectable, with no database dependency.
// Layout centralises path construction; MoveDir is the guarded
// rename used when a device MAC or version string changes.
package storage
