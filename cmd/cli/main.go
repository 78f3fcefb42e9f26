package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "product":
		handleProduct(args)
	case "order":
		handleOrder(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: storefront auth <register|login|logout|who>")
		return
	}

	switch args[0] {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", args[0])
	}
}

func handleProduct(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: storefront product <list|get|create|delete>")
		return
	}

	switch args[0] {
	case "list":
		listProducts(args[1:])
	case "get":
		getProduct(args[1:])
	case "create":
		createProduct(args[1:])
	case "delete":
		deleteProduct(args[1:])
	default:
		fmt.Printf("unknown product command: %s\n", args[0])
	}
}

func handleOrder(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: storefront order <list|create>")
		return
	}

	switch args[0] {
	case "list":
		listOrders(args[1:])
	case "create":
		createOrder(args[1:])
	default:
		fmt.Printf("unknown order command: %s\n", args[0])
	}
}

// Auth commands
func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")
	fullName := fs.String("name", "", "full name (optional)")

	fs.Parse(args)

	if *username == "" || *email == "" || *password == "" {
		fmt.Println("Error: username, email, and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"username": *username,
		"email":    *email,
		"password": *password,
	}
	if *fullName != "" {
		payload["full_name"] = *fullName
	}

	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/register", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == http.StatusCreated {
		fmt.Printf("✓ User registered: %s\n", *username)
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *username == "" || *password == "" {
		fmt.Println("Error: username and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"username": *username, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == http.StatusOK {
		if token, ok := result["access_token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *username)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Product commands
func listProducts(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	offset := fs.Int("offset", 0, "page offset")
	limit := fs.Int("limit", 10, "page size")
	fs.Parse(args)

	url := fmt.Sprintf("%s/products?offset=%d&limit=%d", getAPIURL(), *offset, *limit)
	resp, err := http.Get(url)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var products []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&products)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", p["id"], p["name"], p["price"], p["quantity"])
	}
	w.Flush()
}

func getProduct(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: storefront product get <id>")
		return
	}

	resp, err := http.Get(getAPIURL() + "/products/" + args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == http.StatusOK {
		fmt.Printf("%v: %v  price=%v  stock=%v\n", result["id"], result["name"], result["price"], result["quantity"])
	} else {
		fmt.Printf("✗ %v\n", result)
	}
}

func createProduct(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "product name")
	description := fs.String("description", "", "description (optional)")
	price := fs.Float64("price", 0, "unit price")
	quantity := fs.Int("quantity", 0, "initial stock")
	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"name":        *name,
		"description": *description,
		"price":       *price,
		"quantity":    *quantity,
	}
	data, _ := json.Marshal(payload)

	req, _ := http.NewRequest("POST", getAPIURL()+"/products", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == http.StatusCreated {
		fmt.Printf("✓ Product created: %v (id=%v)\n", *name, result["id"])
	} else {
		fmt.Printf("✗ Create failed: %v\n", result)
	}
}

func deleteProduct(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: storefront product delete <id>")
		return
	}

	req, _ := http.NewRequest("DELETE", getAPIURL()+"/products/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		fmt.Printf("✓ Product %s deleted\n", args[0])
	} else {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Delete failed: %v\n", result)
	}
}

// Order commands
func listOrders(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/orders", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ %v\n", result)
		return
	}

	var orders []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&orders)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRODUCT\tQTY\tTOTAL\tSTATUS\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n",
			o["id"], o["product_id"], o["quantity"], o["total_price"], o["status"], o["created_at"])
	}
	w.Flush()
}

func createOrder(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	productID := fs.Int64("product", 0, "product id")
	quantity := fs.Int("quantity", 1, "quantity")
	fs.Parse(args)

	if *productID == 0 {
		fmt.Println("Error: product is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{"product_id": *productID, "quantity": *quantity}
	data, _ := json.Marshal(payload)

	req, _ := http.NewRequest("POST", getAPIURL()+"/orders", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == http.StatusCreated {
		fmt.Printf("✓ Order placed: id=%v total=%v\n", result["id"], result["total_price"])
	} else {
		fmt.Printf("✗ Order failed: %v\n", result)
	}
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("STOREFRONT_API"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.storefront/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.storefront", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`Storefront CLI

Usage:
  storefront <command> [options]

Commands:
  auth register -username u -email e -password p [-name n]
  auth login -username u -password p
  auth logout
  auth who
  product list [-offset n] [-limit n]
  product get <id>
  product create -name n -price p -quantity q [-description d]
  product delete <id>
  order list
  order create -product id [-quantity n]

Environment:
  STOREFRONT_API  API base URL (default http://localhost:8080)
`)
}
