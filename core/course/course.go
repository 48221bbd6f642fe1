package course

type Level string

const (
	Beginner     Level = "beginner"
	Intermediate Level = "intermediate"
	Advanced     Level = "advanced"
)

func (l Level) Valid() bool {
	switch l {
	case Beginner, Intermediate, Advanced:
		return true
	}
	return false
}

// Course is a fixed-price catalog entry. Prices are in minor currency units.
type Course struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	PriceInCents int64   `json:"priceInCents"`
	Image        string  `json:"image"`
	Instructor   string  `json:"instructor"`
	Level        Level   `json:"level"`
	Rating       float64 `json:"rating"`
	Students     int     `json:"students"`
	Duration     string  `json:"duration"`
	Lessons      int     `json:"lessons"`
}

// PriceBand narrows a listing by price.
type PriceBand string

const (
	Free     PriceBand = "free"
	Under100 PriceBand = "under100"
	Under200 PriceBand = "under200"
)

type Filter struct {
	Query string    `json:"q"`
	Level Level     `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Price PriceBand `json:"price" validate:"omitempty,oneof=free under100 under200"`
}

// Courses is the catalog served by the marketplace.
var Courses = []Course{
	{
		ID:           "ai-fundamentals",
		Name:         "AI Fundamentals",
		Description:  "Learn the basics of artificial intelligence, machine learning, and deep learning with practical examples.",
		PriceInCents: 9999,
		Image:        "/courses/ai-fundamentals.jpg",
		Instructor:   "Dr. Sarah Chen",
		Level:        Beginner,
		Rating:       4.8,
		Students:     12500,
		Duration:     "8 weeks",
		Lessons:      32,
	},
	{
		ID:           "machine-learning-pro",
		Name:         "Machine Learning Professional",
		Description:  "Master supervised and unsupervised learning, neural networks, and real-world ML applications.",
		PriceInCents: 19999,
		Image:        "/courses/ml-pro.jpg",
		Instructor:   "Prof. James Mitchell",
		Level:        Intermediate,
		Rating:       4.9,
		Students:     8300,
		Duration:     "12 weeks",
		Lessons:      48,
	},
	{
		ID:           "deep-learning-advanced",
		Name:         "Deep Learning Advanced",
		Description:  "Advanced deep learning techniques including CNNs, RNNs, transformers, and cutting-edge architectures.",
		PriceInCents: 29999,
		Image:        "/courses/dl-advanced.jpg",
		Instructor:   "Dr. Michael Zhang",
		Level:        Advanced,
		Rating:       4.7,
		Students:     4200,
		Duration:     "10 weeks",
		Lessons:      42,
	},
	{
		ID:           "nlp-mastery",
		Name:         "Natural Language Processing Mastery",
		Description:  "Build intelligent NLP systems with transformers, BERT, GPT, and modern language models.",
		PriceInCents: 24999,
		Image:        "/courses/nlp-mastery.jpg",
		Instructor:   "Dr. Emily Watson",
		Level:        Advanced,
		Rating:       4.9,
		Students:     6100,
		Duration:     "10 weeks",
		Lessons:      45,
	},
	{
		ID:           "computer-vision",
		Name:         "Computer Vision Essentials",
		Description:  "Master image processing, object detection, segmentation, and real-time computer vision applications.",
		PriceInCents: 19999,
		Image:        "/courses/cv-essentials.jpg",
		Instructor:   "Prof. David Lee",
		Level:        Intermediate,
		Rating:       4.8,
		Students:     7600,
		Duration:     "9 weeks",
		Lessons:      40,
	},
	{
		ID:           "ai-deployment",
		Name:         "AI Model Deployment & MLOps",
		Description:  "Learn to deploy, monitor, and scale AI models in production using modern DevOps practices.",
		PriceInCents: 17999,
		Image:        "/courses/ai-deployment.jpg",
		Instructor:   "Alex Rodriguez",
		Level:        Intermediate,
		Rating:       4.6,
		Students:     5400,
		Duration:     "8 weeks",
		Lessons:      36,
	},
	{
		ID:           "gen-ai-apps",
		Name:         "Generative AI Applications",
		Description:  "Build real-world applications with ChatGPT, image generation, and large language models.",
		PriceInCents: 22999,
		Image:        "/courses/gen-ai.jpg",
		Instructor:   "Dr. Lisa Anderson",
		Level:        Intermediate,
		Rating:       4.9,
		Students:     15200,
		Duration:     "6 weeks",
		Lessons:      28,
	},
	{
		ID:           "reinforcement-learning",
		Name:         "Reinforcement Learning",
		Description:  "Deep dive into RL algorithms, Q-learning, policy gradients, and game-playing AI.",
		PriceInCents: 26999,
		Image:        "/courses/rl-learning.jpg",
		Instructor:   "Prof. Thomas Brown",
		Level:        Advanced,
		Rating:       4.8,
		Students:     3800,
		Duration:     "11 weeks",
		Lessons:      50,
	},
}
