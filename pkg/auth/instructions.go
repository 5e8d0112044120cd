package auth

import (
	"fmt"
	"strings"
)

// ShowAPIKeyGuide displays step-by-step instructions for getting a
// Companies House API key
func ShowAPIKeyGuide() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("🔑 COMPANIES HOUSE API KEY GUIDE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("This tool needs a Companies House API key to fetch company data.")
	fmt.Println("Registration is free:")
	fmt.Println()

	fmt.Println("📝 STEP 1: Create a developer account")
	fmt.Println("   - Go to https://developer.company-information.service.gov.uk")
	fmt.Println("   - Sign in or register a new account")
	fmt.Println()

	fmt.Println("📦 STEP 2: Register an application")
	fmt.Println("   - Open 'Your applications' and create a new application")
	fmt.Println("   - Choose the 'Live' environment for real company data")
	fmt.Println("     (or 'Sandbox' for testing against test data)")
	fmt.Println()

	fmt.Println("🗝️  STEP 3: Create a REST API key")
	fmt.Println("   - Inside the application, create a new key of type 'REST'")
	fmt.Println("   - Copy the key: a long string of letters, digits, - and _")
	fmt.Println()

	fmt.Println("💾 STEP 4: Store the key")
	fmt.Println("   - Run: chscraper auth login")
	fmt.Println("   - Or set the environment variable:")
	fmt.Printf("     export %s=your-key-here\n", EnvAPIKey)
	fmt.Println()

	fmt.Println("⚠️  NOTES:")
	fmt.Println("   • The key is sent as the basic-auth username on every request")
	fmt.Println("   • All requests share one quota: 600 requests per 5 minutes")
	fmt.Println("   • Never commit the key to version control")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

// ShowQuickAPIKeyGuide shows a condensed version for experienced users
func ShowQuickAPIKeyGuide() {
	fmt.Println("\n🔑 Quick guide: developer.company-information.service.gov.uk → Your applications → New application → REST key")
	fmt.Printf("   Then: chscraper auth login, or export %s=...\n", EnvAPIKey)
}
