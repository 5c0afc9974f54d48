package validators

import "go.mongodb.org/mongo-driver/bson"

var HoldValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"resource_id",
			"date",
			"time_label",
			"session_id",
			"created_at",
			"expires_at",
		},
		"additionalProperties": false,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"resource_id": resourceIDSchema,
			"date":        dateSchema,
			"time_label":  timeLabelSchema,
			"session_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
			"expires_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
