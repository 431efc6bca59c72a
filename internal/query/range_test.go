package query

import "testing"

func TestDownsamplePicksLargestBlockNotExceedingBoundary(t *testing.T) {
	points := []Point{
		{Block: 10, Value: Value{BlockHeight: 10}},
		{Block: 20, Value: Value{BlockHeight: 20}},
		{Block: 35, Value: Value{BlockHeight: 35}},
	}
	boundaries := []uint64{15, 25, 40}

	got := Downsample(points, boundaries)
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	if got[0].Block != 10 || got[1].Block != 20 || got[2].Block != 35 {
		t.Fatalf("got = %+v", got)
	}
}

func TestDownsampleExcludesBoundaryBeforeFirstPoint(t *testing.T) {
	points := []Point{{Block: 10}}
	got := Downsample(points, []uint64{5, 10})
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1 (boundary 5 precedes the first point)", len(got))
	}
}

func TestDownsampleIncludesFinalBoundaryExactly(t *testing.T) {
	points := []Point{{Block: 1}, {Block: 100}}
	got := Downsample(points, []uint64{1, 50, 100})
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	if got[2].Block != 100 {
		t.Errorf("final point block = %d, want 100", got[2].Block)
	}
}

func TestDownsampleEmptyInputs(t *testing.T) {
	if got := Downsample(nil, []uint64{1}); got != nil {
		t.Errorf("Downsample(nil points) = %+v, want nil", got)
	}
	if got := Downsample([]Point{{Block: 1}}, nil); got != nil {
		t.Errorf("Downsample(nil boundaries) = %+v, want nil", got)
	}
}

func TestIsConstant(t *testing.T) {
	if !IsConstant(Point{Block: ConstantBlock}) {
		t.Error("IsConstant(ConstantBlock) = false, want true")
	}
	if IsConstant(Point{Block: 5}) {
		t.Error("IsConstant(5) = true, want false")
	}
}
