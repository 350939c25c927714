package habanero_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/habanero-go/habanero"
	"github.com/habanero-go/habanero/logger"
	"github.com/habanero-go/habanero/schema"
)

const (
	// timeout for assert.Eventually
	timeout = 5 * time.Second
	// tick for assert.Eventually
	tick = 10 * time.Millisecond
)

// memoryDSN names a shared cache in-memory database private to the test, every
// DB opened on it sees the same tables
func memoryDSN(t *testing.T) string {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
}

func openSQLite(t *testing.T, dsn string, config *habanero.Config) *habanero.DB {
	if config == nil {
		config = &habanero.Config{}
	}
	if config.Logger == nil {
		config.Logger = logger.Discard
	}

	db, err := habanero.Open(habanero.NewDialector("sqlite3", dsn), config)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// newSQLiteDB opens a private database holding the tables of classes
func newSQLiteDB(t *testing.T, classes ...*schema.ClassDef) *habanero.DB {
	db := openSQLite(t, memoryDSN(t), nil)
	require.NoError(t, db.Register(classes...))
	require.NoError(t, db.Migrator().CreateTables(context.Background(), classes...))
	return db
}

// newMockDB a DB on sqlmock matching statements exactly
func newMockDB(t *testing.T, config *habanero.Config) (*habanero.DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	if config == nil {
		config = &habanero.Config{}
	}
	if config.Logger == nil {
		config.Logger = logger.Discard
	}

	db, err := habanero.Open(habanero.NewConnDialector("sqlite3", conn), config)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return db, mock
}

func newObject(t *testing.T, db *habanero.DB, cd *schema.ClassDef, values map[string]interface{}) *habanero.BusinessObject {
	bo, err := db.NewBusinessObject(cd)
	require.NoError(t, err)
	for name, value := range values {
		require.NoError(t, bo.SetPropertyValue(name, value))
	}
	return bo
}

func value(t *testing.T, bo *habanero.BusinessObject, name string) interface{} {
	v, err := bo.GetPropertyValue(name)
	require.NoError(t, err)
	return v
}

// Customer keyed by a code, optimistic version control, unique email
func customerClass() *schema.ClassDef {
	return &schema.ClassDef{
		ClassName: "Customer",
		PropDefs: []*schema.PropDef{
			{Name: "CustomerCode", DataType: schema.String, Size: 20},
			{Name: "Name", DataType: schema.String, Compulsory: true},
			{Name: "Email", DataType: schema.String},
			{Name: "Credit", DataType: schema.Float, Default: 0},
			{Name: "Version", DataType: schema.Int},
			{Name: "UpdatedAt", DataType: schema.Time},
			{Name: "UpdatedBy", DataType: schema.String},
		},
		PrimaryKey: &schema.PrimaryKeyDef{PropNames: []string{"CustomerCode"}},
		Keys:       []*schema.KeyDef{{Name: "idx_customers_email", PropNames: []string{"Email"}}},
		Concurrency: schema.ConcurrencyDef{
			Kind:                schema.OptimisticVersion,
			VersionProp:         "Version",
			DateLastUpdatedProp: "UpdatedAt",
			UserLastUpdatedProp: "UpdatedBy",
		},
	}
}

// Order has lines, deleting an order applies action to its lines
func orderClasses(action schema.DeleteAction) (order, line *schema.ClassDef) {
	line = &schema.ClassDef{
		ClassName: "OrderLine",
		PropDefs: []*schema.PropDef{
			{Name: "LineID", DataType: schema.UUID},
			{Name: "OrderNo", DataType: schema.String},
			{Name: "Product", DataType: schema.String, Compulsory: true},
		},
		PrimaryKey: &schema.PrimaryKeyDef{PropNames: []string{"LineID"}},
	}
	order = &schema.ClassDef{
		ClassName: "Order",
		PropDefs: []*schema.PropDef{
			{Name: "OrderNo", DataType: schema.String},
			{Name: "Customer", DataType: schema.String},
		},
		PrimaryKey: &schema.PrimaryKeyDef{PropNames: []string{"OrderNo"}},
		Relationships: []*schema.RelationshipDef{{
			Name:         "Lines",
			RelatedClass: line,
			Keys:         []schema.RelKey{{OwnerProp: "OrderNo", RelatedProp: "OrderNo"}},
			DeleteAction: action,
			Multiple:     true,
		}},
	}
	return
}

// Entity <- Part <- Engine, class table inheritance with a generated key
func entityClasses() (entity, part, engine *schema.ClassDef) {
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
	engine = &schema.ClassDef{
		ClassName:  "Engine",
		PropDefs:   []*schema.PropDef{{Name: "HorsePower", DataType: schema.Int}},
		SuperClass: &schema.SuperClassDef{Class: part, ORMapping: schema.ClassTableInheritance},
	}
	return
}

// Vehicle <- Car, single table inheritance on VehicleType
func vehicleClasses() (vehicle, car *schema.ClassDef) {
	vehicle = &schema.ClassDef{
		ClassName: "Vehicle",
		PropDefs: []*schema.PropDef{
			{Name: "VehicleID", DataType: schema.String},
			{Name: "VehicleType", DataType: schema.String},
			{Name: "Wheels", DataType: schema.Int},
		},
		PrimaryKey: &schema.PrimaryKeyDef{PropNames: []string{"VehicleID"}},
	}
	car = &schema.ClassDef{
		ClassName:  "Car",
		PropDefs:   []*schema.PropDef{{Name: "Doors", DataType: schema.Int}},
		SuperClass: &schema.SuperClassDef{Class: vehicle, ORMapping: schema.SingleTableInheritance, Discriminator: "VehicleType"},
	}
	return
}

// Document locked pessimistically while edited
func documentClass(lockDuration time.Duration) *schema.ClassDef {
	return &schema.ClassDef{
		ClassName: "Document",
		PropDefs: []*schema.PropDef{
			{Name: "DocumentID", DataType: schema.String},
			{Name: "Title", DataType: schema.String},
			{Name: "Locked", DataType: schema.Bool, Default: false},
			{Name: "LockedBy", DataType: schema.String},
			{Name: "LockedAt", DataType: schema.Time},
		},
		PrimaryKey: &schema.PrimaryKeyDef{PropNames: []string{"DocumentID"}},
		Concurrency: schema.ConcurrencyDef{
			Kind:         schema.PessimisticLock,
			LockedProp:   "Locked",
			LockUserProp: "LockedBy",
			LockTimeProp: "LockedAt",
			LockDuration: lockDuration,
		},
	}
}
