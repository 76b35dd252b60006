package simcontract

import "testing"

func TestLessOrdersByPlayerThenCommand(t *testing.T) {
	a := Command{PlayerNumber: 1, CommandID: 5}
	b := Command{PlayerNumber: 1, CommandID: 6}
	c := Command{PlayerNumber: 2, CommandID: 0}

	if !Less(a, b) {
		t.Fatal("expected a < b within the same player")
	}
	if Less(b, a) {
		t.Fatal("expected b not< a")
	}
	if !Less(b, c) {
		t.Fatal("expected lower player number to sort first regardless of command id")
	}
}

func TestSameKeyIgnoresTypeAndPayload(t *testing.T) {
	a := Command{PlayerNumber: 1, CommandID: 5, Type: "move", IsAuthoritative: false, Payload: []byte("x")}
	b := Command{PlayerNumber: 1, CommandID: 5, Type: "damage", IsAuthoritative: true, Payload: []byte("y")}
	if !SameKey(a, b) {
		t.Fatal("expected SameKey to ignore type/authority/payload")
	}
	c := Command{PlayerNumber: 1, CommandID: 6}
	if SameKey(a, c) {
		t.Fatal("expected SameKey to differ when CommandID differs")
	}
}
