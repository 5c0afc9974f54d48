package validators

import "go.mongodb.org/mongo-driver/bson"

var (
	resourceIDSchema = bson.M{
		"bsonType":  "string",
		"minLength": 1,
		"maxLength": 100,
	}

	dateSchema = bson.M{
		"bsonType": "string",
		"pattern":  `^\d{4}-\d{2}-\d{2}$`,
	}

	timeLabelSchema = bson.M{
		"bsonType": "string",
		"pattern":  `^(1[0-2]|[1-9]):[0-5]\d (AM|PM)$`,
	}
)

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"registration_id",
			"resource_id",
			"date",
			"time_label",
			"registrant",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},

			"registration_id": bson.M{
				"bsonType": "string",
				"pattern":  `^TD-\d+$`,
			},

			"resource_id": resourceIDSchema,
			"date":        dateSchema,
			"time_label":  timeLabelSchema,

			"vehicle": bson.M{
				"bsonType": "object",
				"required": []string{"id", "name"},
			},

			"registrant": bson.M{
				"bsonType": "object",
				"required": []string{
					"first_name",
					"last_name",
					"email",
					"phone",
					"has_valid_license",
					"agreed_to_tos",
				},
				"properties": bson.M{
					"email": bson.M{
						"bsonType":  "string",
						"maxLength": 254,
					},
					"phone": bson.M{
						"bsonType": "string",
						"pattern":  `^\+[1-9]\d{1,14}$`,
					},
					"has_valid_license": bson.M{
						"enum": []bool{true},
					},
					"agreed_to_tos": bson.M{
						"enum": []bool{true},
					},
					"additional_passengers": bson.M{
						"bsonType": "array",
						"maxItems": 4,
					},
				},
			},

			"session_id": bson.M{
				"bsonType":  "string",
				"maxLength": 128,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
