package model

import (
	"reflect"
	"testing"
)

func TestDependentRoles(t *testing.T) {
	cases := []struct {
		role RoleType
		want []RoleType
	}{
		{RoleAnnotator, []RoleType{RoleReviewer, RoleAdmin}},
		{RoleReviewer, []RoleType{RoleAdmin}},
		{RoleAdmin, nil},
		{RoleModelAgent, nil},
	}
	for _, tc := range cases {
		if got := DependentRoles(tc.role); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("DependentRoles(%s) = %v, want %v", tc.role, got, tc.want)
		}
	}
}

func TestImpliedRoles(t *testing.T) {
	if got := ImpliedRoles(RoleAdmin); !reflect.DeepEqual(got, []RoleType{RoleReviewer, RoleAnnotator}) {
		t.Errorf("ImpliedRoles(admin) = %v", got)
	}
	if got := ImpliedRoles(RoleModelAgent); got != nil {
		t.Errorf("model_agent must imply nothing, got %v", got)
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []RoleType{RoleAnnotator, RoleReviewer, RoleAdmin, RoleModelAgent} {
		if !ValidRole(r) {
			t.Errorf("ValidRole(%s) = false", r)
		}
	}
	if ValidRole("superuser") {
		t.Error("unknown role accepted")
	}
}
