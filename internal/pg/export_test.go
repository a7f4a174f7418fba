package pg

var MigrateURL = migrateURL
