package delivery

// Canned data shared by every provider until a real integration lands.

var mockRestaurants = []Restaurant{
	{
		ID:           "1",
		Name:         "Verde Vida",
		Cuisine:      "Brazilian",
		Rating:       4.5,
		DeliveryTime: "30-45 min",
		MinimumOrder: 20,
		DeliveryFee:  5,
	},
	{
		ID:           "2",
		Name:         "Green Bowl",
		Cuisine:      "Salads",
		Rating:       4.7,
		DeliveryTime: "20-35 min",
		MinimumOrder: 15,
		DeliveryFee:  4.5,
	},
	{
		ID:           "3",
		Name:         "Casa do Grão",
		Cuisine:      "Vegetarian",
		Rating:       4.2,
		DeliveryTime: "40-55 min",
		MinimumOrder: 25,
		DeliveryFee:  6,
	},
	{
		ID:           "4",
		Name:         "Sushi Leve",
		Cuisine:      "Japanese",
		Rating:       4.8,
		DeliveryTime: "35-50 min",
		MinimumOrder: 40,
		DeliveryFee:  8,
	},
}

var mockMenuItems = []MenuItem{
	{
		ID:           "1",
		Name:         "Grilled Chicken Bowl",
		Description:  "Grilled chicken, brown rice, roasted vegetables",
		Price:        25.90,
		Calories:     520,
		Category:     "Mains",
		RestaurantID: "1",
	},
	{
		ID:           "2",
		Name:         "Feijoada Light",
		Description:  "Smaller portion with lean cuts",
		Price:        32.00,
		Calories:     680,
		Category:     "Mains",
		RestaurantID: "1",
	},
	{
		ID:           "3",
		Name:         "Caesar Salad",
		Description:  "Romaine, grilled chicken, parmesan, light dressing",
		Price:        22.50,
		Calories:     380,
		Category:     "Salads",
		RestaurantID: "2",
	},
	{
		ID:           "4",
		Name:         "Quinoa Power Bowl",
		Description:  "Quinoa, chickpeas, avocado, kale",
		Price:        27.00,
		Calories:     450,
		Category:     "Bowls",
		RestaurantID: "2",
	},
	{
		ID:           "5",
		Name:         "Veggie Burger",
		Description:  "Black bean patty, whole wheat bun",
		Price:        24.00,
		Calories:     510,
		Category:     "Burgers",
		RestaurantID: "3",
	},
	{
		ID:           "6",
		Name:         "Salmon Roll (8 pcs)",
		Description:  "Fresh salmon, rice, nori",
		Price:        36.00,
		Calories:     330,
		Category:     "Rolls",
		RestaurantID: "4",
	},
}
