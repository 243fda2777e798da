package world

const DefaultChunkSize = 16

type ChunkCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Chunk struct {
	Coord ChunkCoord `json:"coord"`
	Tiles []Tile     `json:"tiles"`
}

func ChunkOf(p Point, size int) ChunkCoord {
	return ChunkCoord{X: floorDiv(p.X, size), Y: floorDiv(p.Y, size)}
}

func floorDiv(a, b int) int {
	if a >= 0 {
		return a / b
	}
	return -(((-a) + b - 1) / b)
}
