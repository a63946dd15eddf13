package domain

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseFusionMethodsEmptySelectsAll(t *testing.T) {
	for _, selector := range []string{"", " ", "all", "basic,all"} {
		got, err := ParseFusionMethods(selector)
		if err != nil {
			t.Fatalf("ParseFusionMethods(%q) error = %v", selector, err)
		}
		if !reflect.DeepEqual(got, AllFusionMethods()) {
			t.Fatalf("ParseFusionMethods(%q) = %v, want all", selector, got)
		}
	}
}

func TestParseFusionMethodsKeepsOrderAndDropsDuplicates(t *testing.T) {
	got, err := ParseFusionMethods("rrf, basic ,RRF")
	if err != nil {
		t.Fatalf("ParseFusionMethods() error = %v", err)
	}
	want := []FusionMethod{FusionRRF, FusionBasic}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseFusionMethodsExplainsClassifierRejection(t *testing.T) {
	_, err := ParseFusionMethods("basic, classifier")
	if !IsKind(err, ErrUnsupportedFusionMethod) {
		t.Fatalf("expected ErrUnsupportedFusionMethod, got %v", err)
	}
	for _, want := range []string{"no trained classifiers", `"all"`, "target_occs"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %q", want, err.Error())
		}
	}

	_, err = ParseFusionMethods("svm")
	if err == nil || !strings.Contains(err.Error(), `unknown method "svm"`) {
		t.Fatalf("expected unknown method error, got %v", err)
	}
}

func TestParseFusionMethodsRejectsUnknownNames(t *testing.T) {
	for _, selector := range []string{"classifier", "basic,svm"} {
		if _, err := ParseFusionMethods(selector); !IsKind(err, ErrUnsupportedFusionMethod) {
			t.Fatalf("ParseFusionMethods(%q) expected ErrUnsupportedFusionMethod, got %v", selector, err)
		}
	}
}
