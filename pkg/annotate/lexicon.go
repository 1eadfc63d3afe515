package annotate

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

var negators = set("not", "no", "never", "neither", "nor", "without", "hardly",
	"isn't", "wasn't", "aren't", "don't", "doesn't", "didn't", "can't", "won't", "cannot")

var positiveWords = set(
	"good", "great", "excellent", "amazing", "awesome", "best", "better", "benefit",
	"benefits", "bright", "celebrate", "clean", "clear", "comfortable", "confident",
	"delight", "easy", "effective", "efficient", "enjoy", "exciting", "fair", "fast",
	"favorable", "fine", "fortunate", "fresh", "glad", "gain", "gains", "growth",
	"happy", "healthy", "helpful", "hope", "ideal", "impressive", "improve",
	"improved", "improvement", "innovative", "joy", "kind", "love", "loved", "lucky",
	"nice", "optimistic", "perfect", "pleasant", "popular", "positive", "powerful",
	"praise", "profit", "profitable", "progress", "promising", "proud", "recover",
	"recovery", "reliable", "remarkable", "robust", "safe", "secure", "simple",
	"smooth", "solid", "strong", "success", "successful", "superb", "support",
	"thrive", "thriving", "top", "trust", "useful", "valuable", "win", "wins",
	"wonderful",
)

var negativeWords = set(
	"bad", "worse", "worst", "awful", "terrible", "horrible", "poor", "problem",
	"problems", "angry", "anxious", "attack", "broken", "bug", "bugs", "concern",
	"concerns", "crash", "crisis", "damage", "danger", "dangerous", "decline",
	"defeat", "deficit", "delay", "difficult", "disappoint", "disappointing",
	"disaster", "downturn", "fail", "failed", "failure", "fear", "fears", "fraud",
	"hard", "harm", "hate", "hurt", "illegal", "inflation", "injury", "loss",
	"losses", "lost", "negative", "outage", "pain", "panic", "poverty", "recession",
	"risk", "risks", "sad", "scandal", "severe", "shortage", "slow", "struggle",
	"suffer", "threat", "trouble", "unfair", "unsafe", "violence", "vulnerable",
	"weak", "wrong",
)
