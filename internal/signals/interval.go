package signals

// step is one row of an interval table: counts >= Min map to Score.
type step struct {
	Min   float64
	Score float64
}

// scoreByInterval returns the score of the last step whose Min is <= v.
// Tables must be sorted by Min ascending.
func scoreByInterval(v float64, table []step) float64 {
	score := 0.0
	for _, s := range table {
		if v < s.Min {
			break
		}
		score = s.Score
	}
	return score
}

var hatenaSteps = []step{
	{Min: 0, Score: 0},
	{Min: 1, Score: 5},
	{Min: 5, Score: 12},
	{Min: 15, Score: 25},
	{Min: 30, Score: 50},
	{Min: 50, Score: 65},
	{Min: 100, Score: 80},
	{Min: 200, Score: 92},
	{Min: 500, Score: 100},
}

var zennSteps = []step{
	{Min: 0, Score: 0},
	{Min: 1, Score: 10},
	{Min: 10, Score: 30},
	{Min: 30, Score: 60},
	{Min: 100, Score: 80},
	{Min: 300, Score: 100},
}

var qiitaLikeSteps = []step{
	{Min: 0, Score: 0},
	{Min: 1, Score: 10},
	{Min: 10, Score: 20},
	{Min: 50, Score: 30},
}

func HatenaScore(bookmarks int) float64 { return scoreByInterval(float64(bookmarks), hatenaSteps) }

func ZennScore(likes int) float64 { return scoreByInterval(float64(likes), zennSteps) }

// QiitaLikeScore scores articles that are not on the popular ranking. It
// tops out at 30 so an unranked article never beats a ranked one.
func QiitaLikeScore(likes int) float64 { return scoreByInterval(float64(likes), qiitaLikeSteps) }

// QiitaRankScore maps a 1-based ranking position to max(100-2.5(r-1), 40).
func QiitaRankScore(rank int) float64 {
	if rank < 1 {
		return 0
	}
	return max(100-2.5*float64(rank-1), 40)
}
