package habanero_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habanero-go/habanero"
	"github.com/habanero-go/habanero/schema"
)

func TestInsertThenSelectRoundTrip(t *testing.T) {
	ctx := context.Background()
	cd := customerClass()
	db := newSQLiteDB(t, cd)

	bo := newObject(t, db, cd, map[string]interface{}{
		"CustomerCode": "ABC123", "Name": "Acme", "Email": "sales@acme.test", "Credit": 12.5,
	})
	require.NoError(t, db.Save(ctx, bo))

	status := bo.Status()
	assert.False(t, status.IsNew)
	assert.False(t, status.IsDirty)
	assert.Equal(t, int64(1), value(t, bo, "Version"))
	assert.True(t, db.BusinessObjectManager.Contains(cd, "ABC123"))

	db.BusinessObjectManager.ClearAll()
	loaded, err := db.BusinessObjectLoader().GetBusinessObjectByID(ctx, cd, "ABC123")
	require.NoError(t, err)
	assert.NotSame(t, bo, loaded)

	for _, name := range []string{"CustomerCode", "Name", "Email", "Credit", "Version", "UpdatedBy"} {
		assert.Equal(t, value(t, bo, name), value(t, loaded, name), name)
	}
	assert.True(t, value(t, bo, "UpdatedAt").(time.Time).Equal(value(t, loaded, "UpdatedAt").(time.Time)))
	assert.False(t, loaded.Status().IsNew)
}

func TestUpdateScenario(t *testing.T) {
	ctx := context.Background()
	cd := customerClass()
	db := newSQLiteDB(t, cd)
	require.NoError(t, db.Save(ctx, newObject(t, db, cd, map[string]interface{}{"CustomerCode": "ABC123", "Name": "Acme"})))
	db.BusinessObjectManager.ClearAll()

	bo, err := db.BusinessObjectLoader().GetBusinessObjectByID(ctx, cd, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, 1, db.BusinessObjectManager.Count())
	assert.True(t, db.BusinessObjectManager.Contains(cd, "ABC123"))

	require.NoError(t, bo.SetPropertyValue("Name", "Acme Ltd"))
	assert.True(t, bo.Status().IsDirty)
	require.NoError(t, db.Save(ctx, bo))

	assert.False(t, bo.Status().IsDirty)
	assert.False(t, bo.Status().IsEditing)
	assert.Equal(t, 1, db.BusinessObjectManager.Count())
	found, err := db.BusinessObjectManager.Lookup(cd, "ABC123")
	require.NoError(t, err)
	assert.Same(t, bo, found)

	var (
		name    string
		version int64
	)
	require.NoError(t, db.ConnPool.QueryRowContext(ctx, `SELECT "name","version" FROM "customers" WHERE "customer_code" = ?`, "ABC123").Scan(&name, &version))
	assert.Equal(t, "Acme Ltd", name)
	assert.Equal(t, int64(2), version)
}

func TestDeleteScenario(t *testing.T) {
	ctx := context.Background()
	cd := customerClass()
	db := newSQLiteDB(t, cd)
	require.NoError(t, db.Save(ctx, newObject(t, db, cd, map[string]interface{}{"CustomerCode": "ABC123", "Name": "Acme"})))

	bo, err := db.BusinessObjectLoader().GetBusinessObjectByID(ctx, cd, "ABC123")
	require.NoError(t, err)
	require.NoError(t, bo.MarkForDelete(ctx))
	require.NoError(t, db.Save(ctx, bo))

	status := bo.Status()
	assert.True(t, status.IsNew)
	assert.True(t, status.IsDeleted)

	_, err = db.BusinessObjectManager.Lookup(cd, "ABC123")
	assert.ErrorIs(t, err, habanero.ErrNotFound)
	_, err = db.BusinessObjectLoader().GetBusinessObjectByID(ctx, cd, "ABC123")
	assert.ErrorIs(t, err, habanero.ErrNotFound)
}

func TestCommitAtomicity(t *testing.T) {
	ctx := context.Background()
	vehicle, car := vehicleClasses()
	db, mock := newMockDB(t, nil)
	require.NoError(t, db.Register(vehicle, car))

	first := newObject(t, db, vehicle, map[string]interface{}{"VehicleID": "V1", "Wheels": 4})
	second := newObject(t, db, vehicle, map[string]interface{}{"VehicleID": "V2", "Wheels": 6})
	before := []habanero.BOStatus{first.Status(), second.Status()}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "vehicles" ("vehicle_id","vehicle_type","wheels") VALUES (?,?,?)`).
		WithArgs("V1", "Vehicle", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "vehicles" ("vehicle_id","vehicle_type","wheels") VALUES (?,?,?)`).
		WithArgs("V2", "Vehicle", int64(6)).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	committer := db.CreateTransactionCommitter()
	committer.AddBusinessObject(first)
	committer.AddBusinessObject(second)
	err := committer.CommitTransaction(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, habanero.ErrStoreExecution)
	var commitErr *habanero.CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, "V2", commitErr.ID)
	assert.Equal(t, habanero.ActionInsert, commitErr.Action)

	assert.Equal(t, before, []habanero.BOStatus{first.Status(), second.Status()})
	assert.Zero(t, db.BusinessObjectManager.Count())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassTableInheritanceInsertAndDelete(t *testing.T) {
	ctx := context.Background()
	_, _, engine := entityClasses()
	db, mock := newMockDB(t, nil)
	require.NoError(t, db.Register(engine))

	bo := newObject(t, db, engine, map[string]interface{}{"Name": "V8", "PartNo": "P-1", "HorsePower": 300})

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "entities" ("name") VALUES (?)`).WithArgs("V8").WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(`INSERT INTO "parts" ("entity_id","part_no") VALUES (?,?)`).WithArgs(int64(42), "P-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "engines" ("entity_id","horse_power") VALUES (?,?)`).WithArgs(int64(42), int64(300)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, db.Save(ctx, bo))

	assert.Equal(t, int64(42), value(t, bo, "EntityID"))
	assert.Equal(t, "42", bo.ID())
	assert.True(t, db.BusinessObjectManager.Contains(engine, "42"))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "engines" WHERE "engines"."entity_id" = ?`).WithArgs(int64(42)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "parts" WHERE "parts"."entity_id" = ?`).WithArgs(int64(42)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "entities" WHERE "entities"."entity_id" = ?`).WithArgs(int64(42)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, bo.MarkForDelete(ctx))
	require.NoError(t, db.Save(ctx, bo))
	assert.True(t, bo.Status().IsNew)
	assert.True(t, bo.Status().IsDeleted)
	assert.False(t, db.BusinessObjectManager.Contains(engine, "42"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertGeneratedKeyRolledBack(t *testing.T) {
	ctx := context.Background()
	entity, part, _ := entityClasses()
	db, mock := newMockDB(t, nil)
	require.NoError(t, db.Register(entity, part))

	bo := newObject(t, db, part, map[string]interface{}{"Name": "bolt", "PartNo": "B-1"})

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "entities" ("name") VALUES (?)`).WithArgs("bolt").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(`INSERT INTO "parts" ("entity_id","part_no") VALUES (?,?)`).WithArgs(int64(7), "B-1").WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	require.Error(t, db.Save(ctx, bo))
	assert.Nil(t, value(t, bo, "EntityID"), "generated key is discarded")
	assert.True(t, bo.Status().IsNew)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveConcurrencyWhenNoRowMatchesVersion(t *testing.T) {
	ctx := context.Background()
	cd := customerClass()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	db, mock := newMockDB(t, &habanero.Config{UserName: "alice", NowFunc: func() time.Time { return now }})
	require.NoError(t, db.Register(cd))

	const selectSQL = `SELECT "customers"."customer_code","customers"."name","customers"."email","customers"."credit","customers"."version","customers"."updated_at","customers"."updated_by" FROM "customers" WHERE "customers"."customer_code" = ?`
	row := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"customer_code", "name", "email", "credit", "version", "updated_at", "updated_by"}).
			AddRow("ABC123", "Acme", nil, 1.5, int64(1), nil, nil)
	}

	// load, begin edit and commit check each read the stored row
	for i := 0; i < 3; i++ {
		mock.ExpectQuery(selectSQL).WithArgs("ABC123").WillReturnRows(row())
	}
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "customers" SET "name"=?,"version"=?,"updated_at"=?,"updated_by"=? WHERE "customers"."customer_code" = ? AND "customers"."version" = ?`).
		WithArgs("Acme Ltd", int64(2), now, "alice", "ABC123", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	bo, err := db.BusinessObjectLoader().GetBusinessObjectByID(ctx, cd, "ABC123")
	require.NoError(t, err)
	require.NoError(t, bo.SetPropertyValueContext(ctx, "Name", "Acme Ltd"))

	err = db.Save(ctx, bo)
	assert.ErrorIs(t, err, habanero.ErrSaveConcurrency)
	assert.ErrorIs(t, err, habanero.ErrConcurrency)
	var concurrencyErr *habanero.ConcurrencyError
	require.ErrorAs(t, err, &concurrencyErr)
	assert.Equal(t, "update", concurrencyErr.Operation)

	assert.Equal(t, "Acme Ltd", value(t, bo, "Name"))
	assert.Equal(t, int64(1), value(t, bo, "Version"))
	assert.True(t, bo.Status().IsDirty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitterSingleUse(t *testing.T) {
	ctx := context.Background()
	cd := customerClass()
	db := newSQLiteDB(t, cd)

	committer := db.CreateTransactionCommitter()
	committer.AddBusinessObject(newObject(t, db, cd, map[string]interface{}{"CustomerCode": "C1", "Name": "One"}))
	require.NoError(t, committer.CommitTransaction(ctx))
	assert.ErrorIs(t, committer.CommitTransaction(ctx), habanero.ErrTransactionCommitted)
}

func TestDuplicateInstanceRejected(t *testing.T) {
	ctx := context.Background()
	cd := customerClass()
	db := newSQLiteDB(t, cd)

	first := newObject(t, db, cd, map[string]interface{}{"CustomerCode": "ABC123", "Name": "Acme"})
	require.NoError(t, db.Save(ctx, first))
	require.NoError(t, db.BusinessObjectManager.Add(first), "adding the same instance is a no-op")

	second := newObject(t, db, cd, map[string]interface{}{"CustomerCode": "ABC123", "Name": "Other"})
	err := db.Save(ctx, second)
	assert.ErrorIs(t, err, habanero.ErrDuplicateInstance)
	var devErr *habanero.DeveloperError
	require.ErrorAs(t, err, &devErr)
	assert.NotEmpty(t, devErr.DeveloperMessage)
	assert.True(t, second.Status().IsNew)

	found, err := db.BusinessObjectManager.Lookup(cd, "ABC123")
	require.NoError(t, err)
	assert.Same(t, first, found)
}

func TestDuplicateKey(t *testing.T) {
	ctx := context.Background()
	cd := customerClass()
	db := newSQLiteDB(t, cd)
	require.NoError(t, db.Save(ctx, newObject(t, db, cd, map[string]interface{}{"CustomerCode": "C1", "Name": "One", "Email": "a@b.test"})))

	bo := newObject(t, db, cd, map[string]interface{}{"CustomerCode": "C2", "Name": "Two", "Email": "a@b.test"})
	err := db.Save(ctx, bo)
	assert.ErrorIs(t, err, habanero.ErrDuplicateConcurrency)
	var dupErr *habanero.DuplicateKeyError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, []string{"Email"}, dupErr.PropNames)
	assert.True(t, bo.Status().IsNew)
	assert.False(t, db.BusinessObjectManager.Contains(cd, "C2"))
}

func TestDuplicatePrimaryKey(t *testing.T) {
	ctx := context.Background()
	cd := customerClass()
	db := newSQLiteDB(t, cd)
	require.NoError(t, db.Save(ctx, newObject(t, db, cd, map[string]interface{}{"CustomerCode": "C1", "Name": "One", "Email": "a@b.test"})))
	db.BusinessObjectManager.ClearAll()

	bo := newObject(t, db, cd, map[string]interface{}{"CustomerCode": "C1", "Name": "Two", "Email": "c@d.test"})
	err := db.Save(ctx, bo)
	assert.ErrorIs(t, err, habanero.ErrDuplicateConcurrency)
	var dupErr *habanero.DuplicateKeyError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, []string{"CustomerCode"}, dupErr.PropNames)
	assert.True(t, bo.Status().IsNew)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	cd := customerClass()
	db := newSQLiteDB(t, cd)

	bo := newObject(t, db, cd, map[string]interface{}{"CustomerCode": "C1"})
	err := db.Save(ctx, bo)
	assert.ErrorIs(t, err, habanero.ErrBusinessObjectInvalid)
	assert.Contains(t, err.Error(), "Name is compulsory")
	assert.True(t, bo.Status().IsNew)
}

func TestCascadeDelete(t *testing.T) {
	ctx := context.Background()
	order, line := orderClasses(schema.DeleteRelated)
	// lines point back at their order, the cycle ends at the order already being deleted
	line.Relationships = []*schema.RelationshipDef{{
		Name:         "Order",
		RelatedClass: order,
		Keys:         []schema.RelKey{{OwnerProp: "OrderNo", RelatedProp: "OrderNo"}},
		DeleteAction: schema.DeleteRelated,
	}}
	db := newSQLiteDB(t, order, line)

	so := newObject(t, db, order, map[string]interface{}{"OrderNo": "SO1", "Customer": "Acme"})
	lines := []*habanero.BusinessObject{
		newObject(t, db, line, map[string]interface{}{"OrderNo": "SO1", "Product": "bolt"}),
		newObject(t, db, line, map[string]interface{}{"OrderNo": "SO1", "Product": "nut"}),
	}
	committer := db.CreateTransactionCommitter()
	committer.AddBusinessObject(so)
	for _, l := range lines {
		committer.AddBusinessObject(l)
	}
	require.NoError(t, committer.CommitTransaction(ctx))

	require.NoError(t, so.MarkForDelete(ctx))
	require.NoError(t, db.Save(ctx, so))

	for _, l := range lines {
		assert.True(t, l.Status().IsDeleted)
		assert.True(t, l.Status().IsNew)
	}

	var count int
	require.NoError(t, db.ConnPool.QueryRowContext(ctx, `SELECT count(*) FROM "order_lines"`).Scan(&count))
	assert.Zero(t, count)
}

func TestPreventDelete(t *testing.T) {
	ctx := context.Background()
	order, line := orderClasses(schema.PreventDelete)
	db := newSQLiteDB(t, order, line)

	so := newObject(t, db, order, map[string]interface{}{"OrderNo": "SO1"})
	l := newObject(t, db, line, map[string]interface{}{"OrderNo": "SO1", "Product": "bolt"})
	committer := db.CreateTransactionCommitter()
	committer.AddBusinessObject(so)
	committer.AddBusinessObject(l)
	require.NoError(t, committer.CommitTransaction(ctx))

	require.NoError(t, so.MarkForDelete(ctx))
	assert.ErrorIs(t, db.Save(ctx, so), habanero.ErrDeletePrevented)
	assert.False(t, so.Status().IsNew)

	var count int
	require.NoError(t, db.ConnPool.QueryRowContext(ctx, `SELECT count(*) FROM "orders"`).Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, so.CancelEdits(ctx))
	assert.False(t, so.Status().IsDeleted)
}

func TestDereferenceOnDelete(t *testing.T) {
	ctx := context.Background()
	order, line := orderClasses(schema.DereferenceRelated)
	db := newSQLiteDB(t, order, line)

	so := newObject(t, db, order, map[string]interface{}{"OrderNo": "SO1"})
	l := newObject(t, db, line, map[string]interface{}{"OrderNo": "SO1", "Product": "bolt"})
	committer := db.CreateTransactionCommitter()
	committer.AddBusinessObject(so)
	committer.AddBusinessObject(l)
	require.NoError(t, committer.CommitTransaction(ctx))

	require.NoError(t, so.MarkForDelete(ctx))
	require.NoError(t, db.Save(ctx, so))

	assert.Nil(t, value(t, l, "OrderNo"))
	assert.False(t, l.Status().IsDirty)

	var orphans int
	require.NoError(t, db.ConnPool.QueryRowContext(ctx, `SELECT count(*) FROM "order_lines" WHERE "order_no" IS NULL`).Scan(&orphans))
	assert.Equal(t, 1, orphans)
}

func TestSQLTransactionCommittedWithObjects(t *testing.T) {
	ctx := context.Background()
	cd := customerClass()
	db := newSQLiteDB(t, cd)
	_, err := db.ConnPool.ExecContext(ctx, `CREATE TABLE "audit" ("message" text)`)
	require.NoError(t, err)

	committer := db.CreateTransactionCommitter()
	committer.AddBusinessObject(newObject(t, db, cd, map[string]interface{}{"CustomerCode": "C1", "Name": "One"}))
	committer.AddTransaction(habanero.NewSQLTransaction(`INSERT INTO "audit" ("message") VALUES (?)`, "created C1"))
	require.NoError(t, committer.CommitTransaction(ctx))

	var message string
	require.NoError(t, db.ConnPool.QueryRowContext(ctx, `SELECT "message" FROM "audit"`).Scan(&message))
	assert.Equal(t, "created C1", message)
}

func TestPreparedStatements(t *testing.T) {
	ctx := context.Background()
	cd := customerClass()
	db := openSQLite(t, memoryDSN(t), &habanero.Config{PrepareStmt: true})
	require.NoError(t, db.Register(cd))
	require.NoError(t, db.Migrator().CreateTables(ctx, cd))

	for _, code := range []string{"C1", "C2"} {
		require.NoError(t, db.Save(ctx, newObject(t, db, cd, map[string]interface{}{"CustomerCode": code, "Name": code})))
	}
	db.BusinessObjectManager.ClearAll()
	loaded, err := db.BusinessObjectLoader().GetBusinessObjectByID(ctx, cd, "C2")
	require.NoError(t, err)
	assert.Equal(t, "C2", value(t, loaded, "Name"))

	stmts := db.PreparedStmts()
	require.Len(t, stmts, 2, "both inserts share one statement")
	assert.Contains(t, stmts[0], `INSERT INTO "customers"`)
	assert.Contains(t, stmts[1], `SELECT "customers"."customer_code"`)
}
