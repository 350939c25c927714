package migrator_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habanero-go/habanero/dialect"
	"github.com/habanero-go/habanero/migrator"
	"github.com/habanero-go/habanero/schema"
)

func vehicleClasses(t *testing.T) (vehicle, car, sportsCar *schema.ClassDef) {
	vehicle = &schema.ClassDef{
		ClassName: "Vehicle",
		PropDefs: []*schema.PropDef{
			{Name: "VehicleID", DataType: schema.String},
			{Name: "VehicleType", DataType: schema.String},
			{Name: "Wheels", DataType: schema.Int, Compulsory: true},
			{Name: "Registration", DataType: schema.String, Size: 20},
		},
		PrimaryKey: &schema.PrimaryKeyDef{PropNames: []string{"VehicleID"}},
		Keys:       []*schema.KeyDef{{PropNames: []string{"Registration"}}},
	}
	car = &schema.ClassDef{
		ClassName:  "Car",
		PropDefs:   []*schema.PropDef{{Name: "Doors", DataType: schema.Int, Compulsory: true}},
		SuperClass: &schema.SuperClassDef{Class: vehicle, ORMapping: schema.SingleTableInheritance, Discriminator: "VehicleType"},
	}
	sportsCar = &schema.ClassDef{
		ClassName:  "SportsCar",
		PropDefs:   []*schema.PropDef{{Name: "TopSpeed", DataType: schema.Int}},
		SuperClass: &schema.SuperClassDef{Class: car, ORMapping: schema.SingleTableInheritance, Discriminator: "VehicleType"},
	}
	require.NoError(t, schema.NewRegistry(nil).Add(vehicle, car, sportsCar))
	return
}

func entityClasses(t *testing.T) (entity, part *schema.ClassDef) {
	entity = &schema.ClassDef{
		ClassName: "Entity",
		PropDefs: []*schema.PropDef{
			{Name: "EntityID", DataType: schema.Int, AutoIncrement: true},
			{Name: "Name", DataType: schema.String},
		},
		PrimaryKey: &schema.PrimaryKeyDef{PropNames: []string{"EntityID"}},
	}
	part = &schema.ClassDef{
		ClassName:  "Part",
		PropDefs:   []*schema.PropDef{{Name: "PartNo", DataType: schema.String}},
		SuperClass: &schema.SuperClassDef{Class: entity, ORMapping: schema.ClassTableInheritance},
	}
	require.NoError(t, schema.NewRegistry(nil).Add(part))
	return
}

func newMigrator(t *testing.T, conn migrator.Execer) migrator.Migrator {
	d, err := dialect.New("sqlite3")
	require.NoError(t, err)
	return migrator.New(&migrator.Config{Dialect: d, Conn: conn, CheckExistsBeforeDropping: true})
}

func TestSingleTableInheritanceSharesOneTable(t *testing.T) {
	vehicle, _, _ := vehicleClasses(t)
	m := newMigrator(t, nil)

	tables, err := m.Tables(vehicle)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	assert.Equal(t, []string{
		`CREATE TABLE "vehicles" ("vehicle_id" text NOT NULL,"vehicle_type" varchar(255),"wheels" integer NOT NULL,"registration" varchar(20),"doors" integer,"top_speed" integer,PRIMARY KEY ("vehicle_id"))`,
		`CREATE UNIQUE INDEX "idx_vehicles_registration" ON "vehicles" ("registration")`,
	}, m.CreateTableSQL(tables[0]))
}

func TestClassTableInheritanceRootFirst(t *testing.T) {
	entity, _ := entityClasses(t)
	m := newMigrator(t, nil)

	tables, err := m.Tables(entity)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, `CREATE TABLE "entities" ("entity_id" integer PRIMARY KEY AUTOINCREMENT,"name" text)`, m.CreateTableSQL(tables[0])[0])
	assert.Equal(t, `CREATE TABLE "parts" ("entity_id" integer NOT NULL,"part_no" text,PRIMARY KEY ("entity_id"))`, m.CreateTableSQL(tables[1])[0])
}

func TestCreateAndDropTables(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	ctx := context.Background()
	entity, part := entityClasses(t)
	m := newMigrator(t, db)

	require.NoError(t, m.CreateTables(ctx, entity))

	_, err = db.Exec(`INSERT INTO "entities" ("name") VALUES (?)`, "gearbox")
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO "parts" ("entity_id","part_no") VALUES (?,?)`, 1, "GB-1")
	require.NoError(t, err)

	var partNo string
	require.NoError(t, db.QueryRow(`SELECT "part_no" FROM "parts","entities" WHERE "parts"."entity_id" = "entities"."entity_id"`).Scan(&partNo))
	assert.Equal(t, "GB-1", partNo)

	require.Error(t, m.CreateTables(ctx, part), "tables exist")

	require.NoError(t, m.DropTables(ctx, entity))
	require.NoError(t, m.DropTables(ctx, entity), "drop checks existence")

	var count int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name IN ('entities','parts')").Scan(&count))
	assert.Zero(t, count)
}
