// Package database provides configuration, connection management, error
// classification, transaction demarcation, migrations, SQL initialization,
// query hooks and health checks built on top of Bun.
package database
