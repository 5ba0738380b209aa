package email

// Email templates, kept intentionally small: the station only ever
// sends two kinds of driver notification.

const welcomeTemplate = `
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
    <h2>Welcome</h2>
    <p>Your account is linked to car {{.CarID}}. You can now submit charging requests.</p>
</body>
</html>
`

const billCompletedTemplate = `
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
    <h2>Charging bill {{.BillID}}</h2>
    <p>Pile: {{.PileID}}</p>
    <table cellpadding="6">
        <tr><td>Energy delivered</td><td>{{.DeliveredKWh}} kWh</td></tr>
        <tr><td>Charge fee</td><td>{{.ChargeFee}}</td></tr>
        <tr><td>Service fee</td><td>{{.ServiceFee}}</td></tr>
        <tr><td><strong>Total</strong></td><td><strong>{{.TotalFee}}</strong></td></tr>
    </table>
    <p>A PDF receipt is attached where supported.</p>
</body>
</html>
`
