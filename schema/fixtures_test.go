package schema

func entityClasses() (entity, part, engine *ClassDef) {
	entity = &ClassDef{
		ClassName: "Entity",
		PropDefs: []*PropDef{
			{Name: "EntityID", DataType: Int},
			{Name: "EntityType", DataType: String},
			{Name: "Name", DataType: String, Compulsory: true},
		},
		PrimaryKey: &PrimaryKeyDef{PropNames: []string{"EntityID"}},
	}
	part = &ClassDef{
		ClassName: "Part",
		PropDefs: []*PropDef{
			{Name: "PartNo", DataType: String},
		},
		SuperClass: &SuperClassDef{Class: entity, ORMapping: ClassTableInheritance},
	}
	engine = &ClassDef{
		ClassName: "Engine",
		PropDefs: []*PropDef{
			{Name: "EngineID", DataType: Int},
			{Name: "HorsePower", DataType: Int},
		},
		SuperClass: &SuperClassDef{Class: part, ORMapping: ClassTableInheritance, ID: "EngineID"},
	}
	return
}

func vehicleClasses() (vehicle, car, sportsCar *ClassDef) {
	vehicle = &ClassDef{
		ClassName: "Vehicle",
		PropDefs: []*PropDef{
			{Name: "VehicleID", DataType: String},
			{Name: "VehicleType", DataType: String},
			{Name: "Wheels", DataType: Int},
		},
		PrimaryKey: &PrimaryKeyDef{PropNames: []string{"VehicleID"}},
	}
	car = &ClassDef{
		ClassName: "Car",
		PropDefs: []*PropDef{
			{Name: "Doors", DataType: Int},
		},
		SuperClass: &SuperClassDef{Class: vehicle, ORMapping: SingleTableInheritance, Discriminator: "VehicleType"},
	}
	sportsCar = &ClassDef{
		ClassName:          "SportsCar",
		DiscriminatorValue: "Sports",
		PropDefs: []*PropDef{
			{Name: "TopSpeed", DataType: Int},
		},
		SuperClass: &SuperClassDef{Class: car, ORMapping: SingleTableInheritance, Discriminator: "VehicleType"},
	}
	return
}

func propNames(props []*PropDef) []string {
	names := make([]string, 0, len(props))
	for _, prop := range props {
		names = append(names, prop.Name)
	}
	return names
}
