package mailer

import "html/template"

var otpTemplate = template.Must(template.New("otp").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="margin: 0 0 12px 0;">Financial Awareness Survey</h1>
  <p style="margin: 0 0 16px 0; color: #4b5563;">Use the verification code below to complete your survey:</p>
  <div style="font-size: 24px; letter-spacing: 0.35em; font-weight: 700; color: #4f46e5;">{{.Code}}</div>
  <p style="margin: 16px 0 8px 0; color: #4b5563; font-size: 13px;">This code will expire in <strong>{{.Minutes}} minutes</strong>.</p>
  <p style="margin: 0; color: #6b7280; font-size: 12px;">If you didn't request this verification, you can safely ignore this email.</p>
</div>`))

var requestTemplate = template.Must(template.New("request").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 640px; margin: 0 auto; padding: 20px;">
  <h2 style="margin: 0 0 12px 0;">Dashboard Access Request</h2>
  <p style="margin: 0 0 16px 0; color: #444;">A user requested access to the dashboard.</p>
  <div style="border: 1px solid #e5e7eb; border-radius: 10px; padding: 16px; background: #f9fafb;">
    <p style="margin: 0 0 8px 0;"><strong>Name:</strong> {{.Request.Name}}</p>
    <p style="margin: 0 0 8px 0;"><strong>Email:</strong> {{.Request.Email}}</p>
    <p style="margin: 0;"><strong>Reason:</strong> {{.Request.Reason}}</p>
  </div>
  <div style="margin-top: 18px;">
    <a href="{{.ApproveUrl}}" style="display:inline-block;background:#10b981;color:white;text-decoration:none;padding:10px 14px;border-radius:8px;font-weight:600;">Approve</a>
    <a href="{{.DenyUrl}}" style="display:inline-block;background:#ef4444;color:white;text-decoration:none;padding:10px 14px;border-radius:8px;font-weight:600;">Disapprove</a>
  </div>
  <p style="margin-top: 14px; color: #6b7280; font-size: 12px;">If the buttons don't work, open these links:</p>
  <p style="margin: 0; font-size: 12px;"><a href="{{.ApproveUrl}}">{{.ApproveUrl}}</a></p>
  <p style="margin: 0; font-size: 12px;"><a href="{{.DenyUrl}}">{{.DenyUrl}}</a></p>
</div>`))

var approvedTemplate = template.Must(template.New("approved").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 640px; margin: 0 auto; padding: 20px;">
  <h2 style="margin: 0 0 12px 0;">Access Approved</h2>
  <p style="margin: 0 0 16px 0; color: #444;">Your request to access the dashboard has been approved.</p>
  <div style="border: 1px solid #e5e7eb; border-radius: 10px; padding: 16px; background: #f9fafb;">
    <p style="margin: 0 0 8px 0;"><strong>Your Access Code:</strong></p>
    <div style="font-size: 20px; font-weight: 700; letter-spacing: 1px;">{{.Code}}</div>
    <p style="margin: 10px 0 0 0; color: #6b7280; font-size: 12px;">Valid for {{.Minutes}} minutes (until {{.Until}})</p>
  </div>
  <p style="margin-top: 14px; color: #444;">Open the app, go to Dashboard and paste this code in the Admin Key field.</p>
</div>`))

var deniedTemplate = template.Must(template.New("denied").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 640px; margin: 0 auto; padding: 20px;">
  <h2 style="margin: 0 0 12px 0;">Access Request Update</h2>
  <p style="margin: 0; color: #444;">Your request to access the dashboard was not approved at this time.</p>
</div>`))
