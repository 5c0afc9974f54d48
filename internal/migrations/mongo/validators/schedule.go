package validators

import "go.mongodb.org/mongo-driver/bson"

var ScheduleValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"time_slots",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"dates": bson.M{
				"bsonType":    "array",
				"maxItems":    366,
				"uniqueItems": true,
				"items":       dateSchema,
			},

			"time_slots": bson.M{
				"bsonType":    "array",
				"minItems":    1,
				"maxItems":    288,
				"uniqueItems": true,
				"items":       timeLabelSchema,
			},

			"vehicles": bson.M{
				"bsonType": "array",
				"maxItems": 100,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"id", "name"},
					"properties": bson.M{
						"id":   resourceIDSchema,
						"name": bson.M{"bsonType": "string", "minLength": 1, "maxLength": 100},
						"year": bson.M{"bsonType": []string{"int", "long"}},
					},
				},
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
