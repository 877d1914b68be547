package schema

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFieldPaths_SkipsPrimaryKey(t *testing.T) {
	docs := []bson.D{
		{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "Name", Value: "Ada"}},
	}
	got := FieldPaths(docs)
	want := []string{"Name"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}
}

func TestFieldPaths_NestedDocuments(t *testing.T) {
	docs := []bson.D{
		{
			{Key: "Name", Value: "Ada"},
			{Key: "Profile", Value: bson.D{
				{Key: "Email", Value: "ada@example.com"},
				{Key: "Address", Value: bson.D{{Key: "City", Value: "London"}}},
			}},
		},
	}
	got := FieldPaths(docs)
	want := []string{"Name", "Profile", "Profile.Email", "Profile.Address", "Profile.Address.City"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}
}

func TestFieldPaths_FirstSeenOrderAndCasing(t *testing.T) {
	docs := []bson.D{
		{{Key: "Name", Value: "Ada"}, {Key: "Age", Value: 30}},
		{{Key: "Age", Value: 31}, {Key: "Email", Value: "x"}},
		// Same path sampled again keeps original position, and a nested _id
		// is a regular field.
		{{Key: "Name", Value: "Linus"}, {Key: "Meta", Value: bson.D{{Key: "_id", Value: "inner"}}}},
	}
	got := FieldPaths(docs)
	want := []string{"Name", "Age", "Email", "Meta", "Meta._id"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}
}

func TestFieldPaths_ArraysOfDocuments(t *testing.T) {
	docs := []bson.D{
		{{Key: "Orders", Value: bson.A{
			bson.D{{Key: "Total", Value: 12.5}},
			bson.D{{Key: "Total", Value: 99.0}, {Key: "Paid", Value: true}},
		}}},
	}
	got := FieldPaths(docs)
	want := []string{"Orders", "Orders.Total", "Orders.Paid"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}
}

func TestFieldPaths_Empty(t *testing.T) {
	if got := FieldPaths(nil); len(got) != 0 {
		t.Errorf("paths = %v, want empty", got)
	}
}
