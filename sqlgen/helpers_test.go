package sqlgen_test

import (
	"testing"

	"github.com/habanero-go/habanero/dialect"
	"github.com/habanero-go/habanero/schema"
	"github.com/stretchr/testify/require"
)

type object struct {
	cd        *schema.ClassDef
	values    map[string]interface{}
	persisted map[string]interface{}
	dirty     map[string]bool
}

func newObject(cd *schema.ClassDef, values map[string]interface{}) *object {
	obj := &object{cd: cd, values: values, persisted: map[string]interface{}{}, dirty: map[string]bool{}}
	for k, v := range values {
		obj.persisted[k] = v
	}
	return obj
}

func (o *object) set(prop string, value interface{}) *object {
	o.values[prop] = value
	o.dirty[prop] = true
	return o
}

func (o *object) ClassDef() *schema.ClassDef             { return o.cd }
func (o *object) Value(prop string) interface{}          { return o.values[prop] }
func (o *object) PersistedValue(prop string) interface{} { return o.persisted[prop] }
func (o *object) IsDirty(prop string) bool               { return o.dirty[prop] }

func mustDialect(t *testing.T, name string) dialect.Dialect {
	d, err := dialect.New(name)
	require.NoError(t, err)
	return d
}

// Entity <- Part <- Engine, class table inheritance; Engine joins on its own EngineID column
func entityClasses(t *testing.T) (entity, part, engine *schema.ClassDef) {
	entity = &schema.ClassDef{
		ClassName: "Entity",
		PropDefs: []*schema.PropDef{
			{Name: "EntityID", DataType: schema.Int},
			{Name: "Name", DataType: schema.String},
			{Name: "Version", DataType: schema.Int},
		},
		PrimaryKey: &schema.PrimaryKeyDef{PropNames: []string{"EntityID"}},
	}
	part = &schema.ClassDef{
		ClassName:  "Part",
		PropDefs:   []*schema.PropDef{{Name: "PartNo", DataType: schema.String}},
		SuperClass: &schema.SuperClassDef{Class: entity, ORMapping: schema.ClassTableInheritance},
	}
	engine = &schema.ClassDef{
		ClassName: "Engine",
		PropDefs: []*schema.PropDef{
			{Name: "EngineID", DataType: schema.Int},
			{Name: "HorsePower", DataType: schema.Int},
		},
		SuperClass: &schema.SuperClassDef{Class: part, ORMapping: schema.ClassTableInheritance, ID: "EngineID"},
	}
	require.NoError(t, schema.NewRegistry(nil).Add(engine))
	return
}

// Vehicle <- Car <- SportsCar, single table inheritance
func vehicleClasses(t *testing.T) (vehicle, car, sportsCar *schema.ClassDef) {
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
		SuperClass: &schema.SuperClassDef{Class: vehicle, ORMapping: schema.SingleTableInheritance, Discriminator: "vehicle_type"},
	}
	sportsCar = &schema.ClassDef{
		ClassName:          "SportsCar",
		DiscriminatorValue: "Sports",
		PropDefs:           []*schema.PropDef{{Name: "TopSpeed", DataType: schema.Int}},
		SuperClass:         &schema.SuperClassDef{Class: car, ORMapping: schema.SingleTableInheritance, Discriminator: "vehicle_type"},
	}
	require.NoError(t, schema.NewRegistry(nil).Add(vehicle, car, sportsCar))
	return
}
