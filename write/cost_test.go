package write

import "testing"

func TestEncodedBlobLength(t *testing.T) {
	cases := []struct {
		size    uint64
		nShards int
		want    uint64
	}{
		{size: 300, nShards: 10, want: 750}, // k=4, 300*10/4
		{size: 100, nShards: 1, want: 100},  // k=1
	}
	for _, c := range cases {
		if got := EncodedBlobLength(c.size, c.nShards); got != c.want {
			t.Errorf("EncodedBlobLength(%d, %d) = %d, want %d", c.size, c.nShards, got, c.want)
		}
	}
}

func TestStorageCost(t *testing.T) {
	cost := StorageCost(300, 2, 10, 5, 7)
	// encoded = 750; storage = 750*5*2 = 7500; write = 750*7 = 5250
	if cost.StorageCost != 7500 {
		t.Errorf("StorageCost = %d, want 7500", cost.StorageCost)
	}
	if cost.WriteCost != 5250 {
		t.Errorf("WriteCost = %d, want 5250", cost.WriteCost)
	}
	if cost.TotalCost != 7500+5250 {
		t.Errorf("TotalCost = %d, want %d", cost.TotalCost, 7500+5250)
	}
}
