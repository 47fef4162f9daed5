package classifier

// SampleDataset returns a small labeled set of URLs for demos and tests.
// It is far too small for real use; train on curated data instead.
func SampleDataset() ([]string, []int) {
	benign := []string{
		"https://www.google.com",
		"https://github.com/user/repo",
		"https://stackoverflow.com/questions/123",
		"https://www.wikipedia.org/wiki/Main_Page",
		"https://www.reddit.com/r/programming",
		"https://news.ycombinator.com",
		"https://www.microsoft.com/en-us",
		"https://www.apple.com",
		"https://www.amazon.com/product/123",
		"https://www.youtube.com/watch?v=abc123",
		"https://twitter.com/user/status/123",
		"https://www.linkedin.com/in/user",
		"https://medium.com/@user/article",
		"https://www.nytimes.com/article",
		"https://www.bbc.com/news",
	}

	malicious := []string{
		"http://192.168.1.1/login/verify/account",
		"https://free-prize-winner.click/claim-now",
		"http://suspicious-site.com.bad-domain.net/update",
		"https://bank-security-verify.secure-login.com",
		"http://123.45.67.89/download/virus.exe",
		"https://account-suspended-urgent.verify-now.com",
		"http://www.fake-bank.com/login/secure",
		"https://limited-offer.click-now.com/prize",
		"http://malware-download.site.com/install",
		"https://verify-account-now.suspicious-domain.com",
		"http://www.bank-update.com/confirm/urgent",
		"https://free-gift-winner.notify-me.com",
		"http://123.45.67.89/account/validate",
		"https://secure-bank-login.verify-account.com",
		"http://suspicious-keyword-phishing.malware.net",
	}

	urls := make([]string, 0, len(benign)+len(malicious))
	urls = append(urls, benign...)
	urls = append(urls, malicious...)

	labels := make([]int, len(urls))
	for i := len(benign); i < len(labels); i++ {
		labels[i] = 1
	}
	return urls, labels
}
