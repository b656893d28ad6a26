package service

import "fmt"

func welcomeEmailTemplate(name, dashboardURL, appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi %s,

Your account is ready. Upload your media, group it, and generate a link to show it on any screen.

Get started: %s

Best,
The %s Team`, name, dashboardURL, appName)

	return subject, body
}

func paymentConfirmedEmailTemplate(name, packageName, amount, endsAt, appName string) (string, string) {
	subject := fmt.Sprintf("Your %s subscription is active", appName)
	body := fmt.Sprintf(`Hi %s,

We received your payment of %s for the %s package.

Your subscription is active until %s.

Best,
The %s Team`, name, amount, packageName, endsAt, appName)

	return subject, body
}
