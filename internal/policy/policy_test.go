package policy

import "testing"

func TestCapabilities(t *testing.T) {
	owner := Actor{UserID: "u1"}
	stranger := Actor{UserID: "u2"}
	staff := Actor{UserID: "u3", Staff: true}

	if !CanRead(owner, "u1") || CanRead(stranger, "u1") || !CanRead(staff, "u1") {
		t.Fatal("read: owner and staff only")
	}

	if !CanMutate(owner, "u1", false) {
		t.Fatal("owner must be able to edit own unverified record")
	}
	if CanMutate(owner, "u1", true) {
		t.Fatal("owner must not edit a verified record")
	}
	if CanMutate(stranger, "u1", false) {
		t.Fatal("stranger must not edit another user's record")
	}
	if !CanMutate(staff, "u1", true) {
		t.Fatal("staff edits any record")
	}

	if CanDelete(owner, "u1", true) || !CanDelete(owner, "u1", false) || !CanDelete(staff, "u1", true) {
		t.Fatal("delete mirrors mutate")
	}

	if CanVerify(owner) || !CanVerify(staff) {
		t.Fatal("verify is staff-only")
	}

	if !CanReadBalance(owner, "u1") || CanReadBalance(stranger, "u1") || !CanReadBalance(staff, "u1") {
		t.Fatal("balance: owner and staff only")
	}
	if CanListAllBalances(owner) || !CanListAllBalances(staff) {
		t.Fatal("balance listing is staff-only")
	}
}
